// Package auth carries the authenticated user through request contexts.
// Middleware and handlers both import it, so it depends only on domain.
package auth

import (
	"context"

	"github.com/translearn/translearn/internal/domain"
)

type contextKey struct{}

var userKey contextKey

// SetUser returns a context holding the authenticated user. The bearer-token
// middleware calls this after resolving the token.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated user, or nil when the request carried no
// valid credentials.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}
