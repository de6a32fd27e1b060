package middleware

import (
	"net/http"
)

// SecurityHeadersMiddleware stamps security headers on every response.
type SecurityHeadersMiddleware struct {
	// isSecure enables the HTTPS-only headers. Set from the environment:
	// true in production behind TLS, false when serving plain HTTP locally.
	isSecure bool
}

func NewSecurityHeadersMiddleware(isSecure bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{isSecure: isSecure}
}

// apiCSP locks everything to self. The server returns JSON and stored files
// only; the single carve-out is https: image sources because thumbnails can
// be served from the R2 public domain.
const apiCSP = "default-src 'self'; " +
	"script-src 'self'; " +
	"style-src 'self'; " +
	"img-src 'self' data: https:; " +
	"font-src 'self'; " +
	"connect-src 'self'; " +
	"frame-ancestors 'none'; " +
	"base-uri 'self'; " +
	"form-action 'self'"

// Handler sets the headers before handing off to next.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", apiCSP)
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
