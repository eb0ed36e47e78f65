// Package ctxkeys holds the context keys shared by the API layer.
// It is a leaf package so middleware and handlers can both import it.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
type Key string

const (
	// Subject is the token subject injected by AuthMiddleware.
	Subject Key = "subject"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the string stored under key, if any.
func String(ctx context.Context, key Key) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
