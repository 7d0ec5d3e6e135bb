// Package optimizer schedules a storage asset against a price series.
//
// Engine formulates the arbitrage problem as a mixed-integer linear program
// over six variable families per interval (charge, discharge, net flow, state
// of charge and the two binary mode indicators), hands it to a milp.Solver and
// turns the solved assignment into a BUY/SELL/HOLD schedule with Extract.
package optimizer
