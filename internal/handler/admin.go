package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/ussd"
	"github.com/translearn/translearn/internal/worker"
)

// AdminHandler exposes operational endpoints gated behind the admin token.
type AdminHandler struct {
	queries  *repository.Queries
	sessions *ussd.SessionStore
	logger   *slog.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(queries *repository.Queries, sessions *ussd.SessionStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		queries:  queries,
		sessions: sessions,
		logger:   logger,
	}
}

// SeedQuotaPeriods handles POST /api/admin/quota/seed. It enqueues the
// usage-period seeding job for the current month rather than seeding
// inline, so a large user table doesn't tie up the request.
func (h *AdminHandler) SeedQuotaPeriods(w http.ResponseWriter, r *http.Request) {
	period := domain.CurrentPeriod()

	job, err := worker.EnqueueSeedUsagePeriods(r.Context(), h.queries, period, time.Now())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("usage period seed enqueued", "period", period, "job_id", job.ID)
	WriteJSON(w, http.StatusAccepted, envelope{
		"message": "seed job enqueued",
		"period":  period,
		"job_id":  job.ID,
	})
}

// GetUserQuota handles GET /api/admin/users/{id}/quota. It returns the raw
// ledger row for the user's current period without creating it, which makes
// it safe for support staff poking at accounts that have never uploaded.
func (h *AdminHandler) GetUserQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid user id"))
		return
	}

	period := domain.CurrentPeriod()
	record, err := h.queries.GetUsageRecord(r.Context(), userID, period)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ErrorResponse(w, r, h.logger, domain.NotFound("", "usage record", period))
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"usage": record})
}

// GetUserActivity handles GET /api/admin/users/{id}/activity.
func (h *AdminHandler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid user id"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activity, err := h.queries.ListActivityByUser(r.Context(), userID, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{
		"count":    len(activity),
		"activity": activity,
	})
}

// ListUSSDSessions handles GET /api/admin/ussd/sessions.
func (h *AdminHandler) ListUSSDSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.Snapshot()
	WriteJSON(w, http.StatusOK, envelope{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// DeleteUSSDSession handles DELETE /api/admin/ussd/sessions/{id}.
func (h *AdminHandler) DeleteUSSDSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.sessions.Delete(id) {
		ErrorResponse(w, r, h.logger, domain.NotFound("", "ussd session", id))
		return
	}
	WriteJSON(w, http.StatusOK, envelope{"message": "session deleted"})
}
