// Package rte exposes the RTE wholesale market API as a market source.
//
// Day-ahead prices of the French power exchange are fetched with OAuth2
// client credentials, laid out on a regular grid between the configured
// start and end dates, and served under a single market id.
package rte
