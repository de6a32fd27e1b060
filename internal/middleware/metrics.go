package middleware

import (
	"crypto/subtle"
	"net/http"
)

// MetricsAuthMiddleware gates the Prometheus scrape endpoint behind basic
// auth. With no credentials configured the endpoint is open, which is the
// expected setup in development.
type MetricsAuthMiddleware struct {
	username string
	password string
	enabled  bool
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware. Auth is
// enabled when either credential is non-empty.
func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: username,
		password: password,
		enabled:  username != "" || password != "",
	}
}

// Handler returns middleware enforcing the configured credentials.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !m.credentialsMatch(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// credentialsMatch compares both values in constant time so response timing
// doesn't leak how much of a guess was correct.
func (m *MetricsAuthMiddleware) credentialsMatch(user, pass string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password)) == 1
	return userMatch && passMatch
}
