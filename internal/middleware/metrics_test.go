package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func metricsRequest(mw *MetricsAuthMiddleware, mutate func(*http.Request)) *httptest.ResponseRecorder {
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("metrics data"))
	}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec
}

func TestMetricsAuthMiddleware_AllowsValidCredentials(t *testing.T) {
	rec := metricsRequest(NewMetricsAuthMiddleware("admin", "secret123"), func(r *http.Request) {
		r.SetBasicAuth("admin", "secret123")
	})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "metrics data" {
		t.Errorf("expected body to pass through, got %q", rec.Body.String())
	}
}

func TestMetricsAuthMiddleware_RejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*http.Request)
	}{
		{"no credentials", nil},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("wronguser", "secret123") }},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "wrongpassword") }},
		{"both wrong", func(r *http.Request) { r.SetBasicAuth("wrong", "wrong") }},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic notvalidbase64!!!")
		}},
		{"newline smuggling", func(r *http.Request) {
			encoded := base64.StdEncoding.EncodeToString([]byte("admin:secret123\r\nX-Injected: header"))
			r.Header.Set("Authorization", "Basic "+encoded)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := metricsRequest(NewMetricsAuthMiddleware("admin", "secret123"), tt.mutate)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestMetricsAuthMiddleware_ChallengeHeader(t *testing.T) {
	rec := metricsRequest(NewMetricsAuthMiddleware("admin", "secret123"), nil)

	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="metrics"` {
		t.Errorf("unexpected WWW-Authenticate header: %q", got)
	}
}

func TestMetricsAuthMiddleware_OpenWithoutConfiguredCredentials(t *testing.T) {
	rec := metricsRequest(NewMetricsAuthMiddleware("", ""), nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected open endpoint with no credentials configured, got %d", rec.Code)
	}
	if rec.Body.String() != "metrics data" {
		t.Error("expected handler to run when auth is disabled")
	}
}
