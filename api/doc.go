// Package api serves the optimizer over HTTP.
//
//	GET  /health
//	GET  /metrics
//	GET  /v1/markets
//	GET  /v1/configurations
//	POST /v1/calculate-revenue/:market_id
//	POST /v1/optimize
//
// Errors are returned as {"error": {"code": ..., "message": ...}}.
package api
