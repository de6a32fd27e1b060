package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"github.com/translearn/translearn/internal/domain"
)

// InsertActivityLog appends an audit entry. Details may be nil.
func (q *Queries) InsertActivityLog(ctx context.Context, userID uuid.UUID, action string, details []byte) error {
	raw := pqtype.NullRawMessage{}
	if len(details) > 0 {
		raw = pqtype.NullRawMessage{RawMessage: details, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO activity_logs (user_id, action, details)
		VALUES ($1, $2, $3)`,
		userID, action, raw,
	)
	return err
}

// ListActivityByUser returns a user's audit trail, newest first, capped.
func (q *Queries) ListActivityByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, action, details, created_at
		FROM activity_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		var raw pqtype.NullRawMessage
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &raw, &l.CreatedAt); err != nil {
			return nil, err
		}
		if raw.Valid {
			l.Details = raw.RawMessage
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
