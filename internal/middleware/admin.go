package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuthMiddleware gates operational endpoints behind a static bearer
// token. There is no admin role in the user model; these endpoints are for
// operators, not end users.
type AdminAuthMiddleware struct {
	token string
}

// NewAdminAuthMiddleware creates a new admin auth middleware. If token is
// empty, admin endpoints are disabled and every request is rejected.
func NewAdminAuthMiddleware(token string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{token: token}
}

// Handler wraps the given handler with admin token verification.
func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			http.Error(w, "admin endpoints disabled", http.StatusForbidden)
			return
		}

		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
