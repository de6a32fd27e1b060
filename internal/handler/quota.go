package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// QuotaHandler serves the upload quota endpoints.
type QuotaHandler struct {
	quota  service.QuotaService
	logger *slog.Logger
}

// NewQuotaHandler creates the quota handler.
func NewQuotaHandler(quota service.QuotaService, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{quota: quota, logger: logger}
}

// Check handles GET /api/quota. The decision is advisory; the upload
// endpoint makes the binding check atomically.
func (h *QuotaHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	decision, err := h.quota.Check(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{
		"period": domain.CurrentPeriod(),
		"quota":  decision,
	})
}

type usageRecordResponse struct {
	Period        string    `json:"period"`
	UsedCount     int       `json:"used_count"`
	LimitSnapshot int       `json:"limit_snapshot"`
	Remaining     int       `json:"remaining"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// History handles GET /api/quota/history, returning the caller's usage
// ledger newest period first.
func (h *QuotaHandler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	records, err := h.quota.GetUsageHistory(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]usageRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, usageRecordResponse{
			Period:        rec.Period,
			UsedCount:     rec.UsedCount,
			LimitSnapshot: rec.LimitSnapshot,
			Remaining:     rec.Remaining(),
			UpdatedAt:     rec.UpdatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, envelope{"history": out})
}
