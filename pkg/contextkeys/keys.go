// Package contextkeys defines the shared context keys used across middleware
// and handlers, avoiding collisions between packages.
package contextkeys

import "context"

// Key is the type for context keys used by this module.
type Key string

const (
	// PrincipalKey carries the authenticated principal.
	PrincipalKey Key = "principal"
	// RequestIDKey carries the request id assigned by middleware.
	RequestIDKey Key = "request_id"
)

// WithValue stores a value under the given key.
func WithValue(ctx context.Context, key Key, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value retrieves the value stored under the given key, or nil.
func Value(ctx context.Context, key Key) any {
	return ctx.Value(key)
}
