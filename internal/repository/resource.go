package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/translearn/translearn/internal/domain"
)

const resourceColumns = `r.id, r.teacher_id, r.title, r.description, r.subject, r.grade, r.country, r.language, r.tags, r.file_url, r.thumbnail_url, r.created_at, r.updated_at`

func scanResource(row interface{ Scan(dest ...interface{}) error }, withAggregates bool) (*domain.Resource, error) {
	var r domain.Resource
	var description, subject, grade, country, lang, fileURL, thumbURL sql.NullString
	dest := []interface{}{
		&r.ID, &r.TeacherID, &r.Title, &description, &subject, &grade,
		&country, &lang, pq.Array(&r.Tags), &fileURL, &thumbURL,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if withAggregates {
		dest = append(dest, &r.AverageRating, &r.RatingCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.Description = description.String
	r.Subject = subject.String
	r.Grade = grade.String
	r.Country = country.String
	r.Language = lang.String
	r.FileURL = fileURL.String
	r.ThumbnailURL = thumbURL.String
	return &r, nil
}

// CreateResource inserts a resource row and returns it.
func (q *Queries) CreateResource(ctx context.Context, arg domain.ResourceCreateParams) (*domain.Resource, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO resources (teacher_id, title, description, subject, grade, country, language, tags)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING `+strings.ReplaceAll(resourceColumns, "r.", ""),
		arg.TeacherID, arg.Title, arg.Description, arg.Subject, arg.Grade,
		arg.Country, arg.Language, pq.Array(arg.Tags),
	)
	return scanResource(row, false)
}

// GetResource fetches a resource by ID with its rating aggregates.
func (q *Queries) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`,
		       COALESCE(AVG(ra.rating), 0)::float8,
		       COUNT(ra.id)::int
		FROM resources r
		LEFT JOIN ratings ra ON ra.resource_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`,
		id,
	)
	return scanResource(row, true)
}

// ListResources searches resources with optional filters, newest first.
func (q *Queries) ListResources(ctx context.Context, filter domain.ResourceFilter) ([]*domain.Resource, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Subject != "" {
		add("r.subject = $%d", filter.Subject)
	}
	if filter.Grade != "" {
		add("r.grade = $%d", filter.Grade)
	}
	if filter.Country != "" {
		add("r.country = $%d", filter.Country)
	}
	if filter.Language != "" {
		add("r.language = $%d", filter.Language)
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(r.title ILIKE '%%' || $%d || '%%' OR r.description ILIKE '%%' || $%d || '%%')", n, n))
	}

	query := `
		SELECT ` + resourceColumns + `,
		       COALESCE(AVG(ra.rating), 0)::float8,
		       COUNT(ra.id)::int
		FROM resources r
		LEFT JOIN ratings ra ON ra.resource_id = r.id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY r.id ORDER BY r.created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []*domain.Resource
	for rows.Next() {
		r, err := scanResource(rows, true)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// UpdateResourceFile sets the stored file and thumbnail URLs after upload.
func (q *Queries) UpdateResourceFile(ctx context.Context, id uuid.UUID, fileURL, thumbnailURL string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE resources
		SET file_url = NULLIF($2, ''), thumbnail_url = NULLIF($3, ''), updated_at = now()
		WHERE id = $1`,
		id, fileURL, thumbnailURL,
	)
	return err
}

// DeleteResource removes a resource owned by the given teacher.
// Returns the number of rows deleted (0 when not found or not the owner).
func (q *Queries) DeleteResource(ctx context.Context, id, teacherID uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM resources WHERE id = $1 AND teacher_id = $2`,
		id, teacherID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
