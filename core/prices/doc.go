// Package prices turns raw, possibly gapped spot price feeds into ordered
// PricePoint sequences. Timestamps are derived from the position of each
// value in the feed so that dropping a missing value never shifts the time of
// the values that follow it.
package prices
