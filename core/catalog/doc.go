// Package catalog lists the markets and storage profiles the service can run.
//
// Markets are price feeds keyed by id; profiles are named storage
// configurations. Both are read through small source interfaces so that a
// directory of files and a remote price service can be used interchangeably.
package catalog
