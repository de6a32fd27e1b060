package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// runLogged sends a request through the logging middleware wrapping a handler
// that writes the given status, and returns what was logged.
func runLogged(t *testing.T, req *http.Request, status int) string {
	t.Helper()

	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	if req.RemoteAddr == "" {
		req.RemoteAddr = "192.168.1.1:12345"
	}
	wrapped.ServeHTTP(httptest.NewRecorder(), req)
	return buf.String()
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	out := runLogged(t, httptest.NewRequest("GET", "/api/resources", nil), http.StatusOK)

	for _, want := range []string{"GET", "/api/resources", "200", "duration"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingMiddleware_LogsForwardedClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/quota", nil)
	req.RemoteAddr = "10.0.0.1:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.195")

	out := runLogged(t, req, http.StatusOK)

	if !strings.Contains(out, "203.0.113.195") {
		t.Errorf("log should contain X-Forwarded-For client IP, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_ServerErrorsLogElevated(t *testing.T) {
	out := runLogged(t, httptest.NewRequest("POST", "/api/resources", nil), http.StatusInternalServerError)

	if !strings.Contains(out, "500") {
		t.Errorf("log should contain 500 status, got: %s", out)
	}
	if !strings.Contains(out, "level=WARN") && !strings.Contains(out, "level=ERROR") {
		t.Errorf("5xx should log above INFO, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_LogsUserAgent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 TestBrowser")

	out := runLogged(t, req, http.StatusOK)

	if !strings.Contains(out, "TestBrowser") {
		t.Errorf("log should contain user agent, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_RedactsSensitiveQueryParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		secret string
	}{
		{"verification token", "/api/auth/verify-email?token=secrettoken123", "secrettoken123"},
		{"reset token", "/api/auth/reset-password?token=abc123secret", "abc123secret"},
		{"api key", "/api/resources?api_key=sk-livekey9", "sk-livekey9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runLogged(t, httptest.NewRequest("GET", tt.target, nil), http.StatusOK)

			if strings.Contains(out, tt.secret) {
				t.Errorf("log leaked secret %q, got: %s", tt.secret, out)
			}
		})
	}
}

func TestRequestLoggingMiddleware_PassesResponseThrough(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	}))

	req := httptest.NewRequest("POST", "/api/resources", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom") != "value" {
		t.Error("custom header should be preserved")
	}
	if rec.Body.String() != "response body" {
		t.Errorf("response body should be preserved, got: %s", rec.Body.String())
	}
}

func TestRequestLoggingMiddleware_CapturesWrittenStatus(t *testing.T) {
	out := runLogged(t, httptest.NewRequest("GET", "/api/resources/missing", nil), http.StatusNotFound)

	if !strings.Contains(out, "404") {
		t.Errorf("log should contain 404 status, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics", "/files/resources/abc/files/doc.pdf"} {
		t.Run(path, func(t *testing.T) {
			out := runLogged(t, httptest.NewRequest("GET", path, nil), http.StatusOK)

			if out != "" {
				t.Errorf("request to %s should not be logged, got: %s", path, out)
			}
		})
	}
}
