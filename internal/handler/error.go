// Package handler contains the HTTP handlers for the TransLearn JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/translearn/translearn/internal/domain"
)

// envelope wraps every JSON response body.
type envelope map[string]any

// statusForCode maps application error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes a JSON error for any application error. Internal
// errors get a generic message; the underlying cause only goes to the log.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := statusForCode(code)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteJSON(w, http.StatusBadRequest, envelope{
			"error": envelope{
				"code":    domain.EINVALID,
				"message": "validation failed",
				"fields":  ve.Fields,
			},
		})
		return
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"op", domain.ErrorOp(err),
			"error", err,
		)
	}

	WriteJSON(w, status, envelope{
		"error": envelope{
			"code":    code,
			"message": domain.ErrorMessage(err),
		},
	})
}

// UnauthorizedResponse writes a 401 JSON error.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Unauthorized("", "authentication required"))
}

// NotFoundResponse writes a 404 JSON error, used as the mux fallback.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, &domain.Error{
		Code:    domain.ENOTFOUND,
		Message: "the requested resource could not be found",
	})
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; nothing left to do.
			return
		}
	}
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields
// and oversized bodies.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("", "invalid JSON request body")
	}
	return nil
}
