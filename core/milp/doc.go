// Package milp describes mixed-integer linear programs independently of any
// solver back end and ships a branch-and-bound solver. Its LP relaxations run
// on a bounded-variable simplex kept in a gonum dense matrix, so variable
// bounds never become rows and the solve stops soon after its context ends.
//
// A Problem is built from tagged variables (continuous or binary, each with
// bounds), a sparse linear objective and sparse linear constraints. An
// optional Heuristic rounds relaxed values into incumbents. Solvers implement
// the Solver interface and either return an optimal assignment or a
// *StatusError carrying the non-optimal Status.
package milp
