// Package middleware holds the net/http middleware shared by every route:
// request IDs, per-client rate limiting and access logging.
package middleware
