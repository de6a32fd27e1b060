package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
)

// RatingService defines operations for rating resources.
type RatingService interface {
	// Rate records or updates a student's rating for a resource.
	// Returns domain.EINVALID for an out-of-range score, domain.EFORBIDDEN
	// when the caller is not a student, domain.ENOTFOUND for an unknown
	// resource.
	Rate(ctx context.Context, resourceID, studentID uuid.UUID, score int, feedback string) (*domain.Rating, error)

	// ListForResource returns all ratings for a resource, newest first.
	ListForResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.Rating, error)

	// Summary returns the average score and rating count for a resource.
	Summary(ctx context.Context, resourceID uuid.UUID) (*domain.RatingSummary, error)
}

type ratingService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(queries *repository.Queries, logger *slog.Logger) RatingService {
	return &ratingService{queries: queries, logger: logger}
}

func (s *ratingService) Rate(ctx context.Context, resourceID, studentID uuid.UUID, score int, feedback string) (*domain.Rating, error) {
	const op = "rating.rate"

	if !domain.ValidRating(score) {
		return nil, domain.NewValidationError(op, "rating", "rating must be between 1 and 5")
	}

	student, err := s.queries.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", studentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load student")
	}
	if student.Role != domain.RoleStudent {
		return nil, domain.Forbidden(op, "only students can rate resources")
	}

	if _, err := s.queries.GetResource(ctx, resourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "resource", resourceID.String())
		}
		return nil, domain.Internal(err, op, "failed to load resource")
	}

	rating, err := s.queries.UpsertRating(ctx, domain.Rating{
		ResourceID: resourceID,
		StudentID:  studentID,
		Rating:     score,
		Feedback:   feedback,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to save rating")
	}

	metrics.RatingsSubmitted.Inc()
	details, _ := json.Marshal(map[string]string{
		"resource_id": resourceID.String(),
		"rating":      strconv.Itoa(score),
	})
	if err := s.queries.InsertActivityLog(ctx, studentID, domain.ActionResourceRated, details); err != nil {
		s.logger.Warn("failed to record rating activity", "error", err)
	}

	return rating, nil
}

func (s *ratingService) ListForResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.Rating, error) {
	const op = "rating.list"

	ratings, err := s.queries.ListRatings(ctx, resourceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list ratings")
	}
	return ratings, nil
}

func (s *ratingService) Summary(ctx context.Context, resourceID uuid.UUID) (*domain.RatingSummary, error) {
	const op = "rating.summary"

	summary, err := s.queries.GetRatingSummary(ctx, resourceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to compute rating summary")
	}
	return summary, nil
}
