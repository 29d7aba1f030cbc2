// Package auth carries the caller's authentication flag through the request
// context so the service layer can apply visibility rules without depending
// on the HTTP surface.
package auth

import (
	"context"
)

type authKey struct{}

// WithAuthenticated marks the context as belonging to an authenticated caller
func WithAuthenticated(ctx context.Context, authenticated bool) context.Context {
	return context.WithValue(ctx, authKey{}, authenticated)
}

// IsAuthenticated reports whether the context belongs to an authenticated
// caller; the default is unauthenticated
func IsAuthenticated(ctx context.Context) bool {
	v, ok := ctx.Value(authKey{}).(bool)
	return ok && v
}
