// Package observability builds the process-wide zap logger.
//
// JSON output is meant for production log shippers; console output is for
// local development. Request-scoped fields (request ID, username) are added by
// the HTTP layer, not here.
package observability
