// Package diagnostics records optimizer inputs for offline replay.
//
// Two backends exist: a directory of one JSON file per call and a rotating
// JSON-lines log that can be queried by time range.
package diagnostics
