package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/translearn/translearn/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"made_up", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForCode(tt.code))
		})
	}
}

func TestErrorResponse_ApplicationError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)

	ErrorResponse(rec, req, discardLogger(), domain.NotFound("resource.get", "resource", "abc"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	errBody := decodeErrorBody(t, rec)
	assert.Equal(t, domain.ENOTFOUND, errBody["code"])
	assert.Contains(t, errBody["message"], "not found")
}

func TestErrorResponse_QuotaExhausted(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/resources", nil)

	ErrorResponse(rec, req, discardLogger(), domain.QuotaExceeded("resource.create", 3, 3))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	errBody := decodeErrorBody(t, rec)
	assert.Equal(t, domain.EPAYMENT, errBody["code"])
	assert.Contains(t, errBody["message"], "upgrade your plan")
}

func TestErrorResponse_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)

	ErrorResponse(rec, req, discardLogger(), domain.Internal(io.ErrUnexpectedEOF, "quota.check", "database exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeErrorBody(t, rec)
	assert.NotContains(t, errBody["message"], "exploded")
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)

	ve := domain.NewValidationError("user.register", "email", "a valid email address is required")
	ve = domain.AddFieldError(ve, "password", "password must be at least 8 characters")
	ErrorResponse(rec, req, discardLogger(), ve)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec)
	fields, ok := errBody["fields"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, fields, 2)
	assert.Contains(t, fields["email"], "valid email")
}

func TestErrorResponse_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	ErrorResponse(rec, req, discardLogger(), io.ErrClosedPipe)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeErrorBody(t, rec)
	assert.Equal(t, domain.EINTERNAL, errBody["code"])
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Algebra"}`))
		var dst payload
		require.NoError(t, DecodeJSON(req, &dst))
		assert.Equal(t, "Algebra", dst.Title)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		var dst payload
		err := DecodeJSON(req, &dst)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","bogus":1}`))
		var dst payload
		assert.Error(t, DecodeJSON(req, &dst))
	})
}
