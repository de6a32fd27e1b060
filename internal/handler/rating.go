package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// RatingHandler serves resource rating endpoints.
type RatingHandler struct {
	ratings service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates the rating handler.
func NewRatingHandler(ratings service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, logger: logger}
}

type ratingResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	StudentID  string    `json:"student_id"`
	Score      int       `json:"score"`
	Feedback   string    `json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newRatingResponse(rt *domain.Rating) ratingResponse {
	return ratingResponse{
		ID:         rt.ID.String(),
		ResourceID: rt.ResourceID.String(),
		StudentID:  rt.StudentID.String(),
		Score:      rt.Rating,
		Feedback:   rt.Feedback,
		CreatedAt:  rt.CreatedAt,
	}
}

// Rate handles POST /api/resources/{id}/ratings. Re-rating the same
// resource replaces the earlier score.
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	resourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	var input struct {
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rating, err := h.ratings.Rate(r.Context(), resourceID, user.ID, input.Score, input.Feedback)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, envelope{"rating": newRatingResponse(rating)})
}

// List handles GET /api/resources/{id}/ratings, returning the individual
// ratings plus the aggregate summary.
func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	ratings, err := h.ratings.ListForResource(r.Context(), resourceID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	summary, err := h.ratings.Summary(r.Context(), resourceID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]ratingResponse, 0, len(ratings))
	for _, rt := range ratings {
		out = append(out, newRatingResponse(rt))
	}

	WriteJSON(w, http.StatusOK, envelope{
		"ratings": out,
		"summary": envelope{
			"average": summary.Average,
			"count":   summary.Count,
		},
	})
}
