package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
)

// UpsertRating inserts a student's rating for a resource, or updates the
// existing one. Each student rates a resource at most once.
func (q *Queries) UpsertRating(ctx context.Context, arg domain.Rating) (*domain.Rating, error) {
	var r domain.Rating
	var feedback sql.NullString
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO ratings (resource_id, student_id, rating, feedback)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (resource_id, student_id)
		DO UPDATE SET rating = EXCLUDED.rating, feedback = EXCLUDED.feedback, updated_at = now()
		RETURNING id, resource_id, student_id, rating, feedback, created_at, updated_at`,
		arg.ResourceID, arg.StudentID, arg.Rating, arg.Feedback,
	).Scan(&r.ID, &r.ResourceID, &r.StudentID, &r.Rating, &feedback, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Feedback = feedback.String
	return &r, nil
}

// ListRatings returns all ratings for a resource, newest first.
func (q *Queries) ListRatings(ctx context.Context, resourceID uuid.UUID) ([]*domain.Rating, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, resource_id, student_id, rating, feedback, created_at, updated_at
		FROM ratings WHERE resource_id = $1 ORDER BY created_at DESC`,
		resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []*domain.Rating
	for rows.Next() {
		var r domain.Rating
		var feedback sql.NullString
		if err := rows.Scan(&r.ID, &r.ResourceID, &r.StudentID, &r.Rating, &feedback, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Feedback = feedback.String
		ratings = append(ratings, &r)
	}
	return ratings, rows.Err()
}

// GetRatingSummary returns the average and count for a resource.
// A resource with no ratings yields a zero average, not an error.
func (q *Queries) GetRatingSummary(ctx context.Context, resourceID uuid.UUID) (*domain.RatingSummary, error) {
	s := domain.RatingSummary{ResourceID: resourceID}
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(id)::int
		FROM ratings WHERE resource_id = $1`,
		resourceID,
	).Scan(&s.Average, &s.Count)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
