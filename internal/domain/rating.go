package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a student's 1-5 score for a resource, with optional feedback.
// Each student rates a resource at most once; re-rating updates the row.
type Rating struct {
	ID         uuid.UUID
	ResourceID uuid.UUID
	StudentID  uuid.UUID
	Rating     int
	Feedback   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether the score is within the allowed range.
func ValidRating(score int) bool {
	return score >= MinRating && score <= MaxRating
}

// RatingSummary is the per-resource aggregate shown alongside a resource.
type RatingSummary struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Average    float64   `json:"average"`
	Count      int       `json:"count"`
}
