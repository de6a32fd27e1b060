// Package middleware contains HTTP middleware for the TransLearn API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/handler"
	"github.com/translearn/translearn/internal/service"
)

// =============================================================================
// Configuration Constants
// =============================================================================

// SessionCookieName is the name of the cookie that stores the session token.
// The cookie itself is managed by the auth package so login and logout
// handlers can set it without importing this package.
const SessionCookieName = auth.SessionCookieName

// =============================================================================
// Context Helpers
// =============================================================================

// GetUser retrieves the authenticated user from the request context.
//
// Returns nil if no user is authenticated (request passed through WithUser
// but no valid session was found). The user is stored through the auth
// package so handlers can read it without importing this package.
func GetUser(ctx context.Context) *domain.User {
	return auth.GetUser(ctx)
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware provides authentication middleware functionality.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool // Whether to set Secure flag on cookies (true in production)
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithUser is middleware that attempts to load the user from the request's
// credentials. It checks an Authorization bearer token first, then falls
// back to the session cookie, and continues to the next handler regardless
// of authentication status.
//
// The user can be retrieved in handlers using middleware.GetUser(r.Context()).
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Invalid or expired session. Clear the cookie if that's where
			// the token came from, then continue unauthenticated.
			if fromCookie {
				clearSessionCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser is middleware that requires an authenticated user and returns
// 401 otherwise.
//
// IMPORTANT: This middleware must be used AFTER WithUser in the middleware chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole is middleware that requires the authenticated user to hold the
// given role. Returns 403 for a user with a different role.
//
// IMPORTANT: Use this AFTER RequireUser in the middleware chain.
func (m *AuthMiddleware) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			if user.Role != role {
				err := domain.Forbidden("", "this action requires the "+string(role)+" role")
				handler.ErrorResponse(w, r, m.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionToken extracts the session token from the request. The second
// return reports whether the token came from the cookie rather than the
// Authorization header.
func sessionToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && token != "" {
			return token, false
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// =============================================================================
// Cookie Helpers
// =============================================================================

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	auth.SetSessionCookie(w, token, isSecure)
}

// clearSessionCookie removes the session cookie from the client.
func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	auth.ClearSessionCookie(w, isSecure)
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /api/quota", stack(quotaHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
