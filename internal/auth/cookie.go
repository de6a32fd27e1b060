package auth

import "net/http"

const (
	// SessionCookieName is the name of the cookie that stores the session token.
	SessionCookieName = "translearn_session"

	// SessionCookiePath ensures the cookie is sent with all requests.
	SessionCookiePath = "/"

	// SessionCookieMaxAge sets the cookie expiration in seconds.
	// This should match SessionDuration in the user service (7 days).
	SessionCookieMaxAge = 7 * 24 * 60 * 60
)

// SetSessionCookie sets the session cookie on the response.
//
// Cookie Settings:
// - HttpOnly: true - Prevents JavaScript access (XSS protection)
// - Secure: configurable - Set true in production (HTTPS only)
// - SameSite: Lax - Prevents CSRF while allowing normal navigation
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     SessionCookiePath,
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the client by setting
// MaxAge to -1, which tells the browser to delete it immediately.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     SessionCookiePath,
		MaxAge:   -1, // Delete immediately
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
