// Package middleware provides the HTTP middleware for token authentication,
// role guards and Redis-backed distributed rate limiting.
package middleware
