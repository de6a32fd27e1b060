package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
)

const usageColumns = `id, user_id, period, used_count, limit_snapshot, created_at, updated_at`

func scanUsageRecord(row interface{ Scan(dest ...interface{}) error }) (*domain.UsageRecord, error) {
	var r domain.UsageRecord
	err := row.Scan(
		&r.ID, &r.UserID, &r.Period, &r.UsedCount, &r.LimitSnapshot,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EnsureUsageRecord creates the ledger row for (user, period) if it does not
// exist and returns the current row either way.
//
// The insert uses ON CONFLICT DO NOTHING against the (user_id, period) unique
// constraint, so concurrent first-of-the-month callers race harmlessly:
// exactly one insert wins and every caller reads the same row. The limit
// snapshot is only written on creation and is never updated afterwards.
func (q *Queries) EnsureUsageRecord(ctx context.Context, userID uuid.UUID, period string, limitSnapshot int) (*domain.UsageRecord, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO usage_records (user_id, period, used_count, limit_snapshot)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, period) DO NOTHING`,
		userID, period, limitSnapshot,
	)
	if err != nil {
		return nil, err
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+usageColumns+`
		FROM usage_records WHERE user_id = $1 AND period = $2`,
		userID, period,
	)
	return scanUsageRecord(row)
}

// GetUsageRecord fetches the ledger row for (user, period) without creating it.
// Returns sql.ErrNoRows when the row does not exist.
func (q *Queries) GetUsageRecord(ctx context.Context, userID uuid.UUID, period string) (*domain.UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+usageColumns+`
		FROM usage_records WHERE user_id = $1 AND period = $2`,
		userID, period,
	)
	return scanUsageRecord(row)
}

// ConsumeQuota atomically spends one upload unit for (user, period).
//
// The compare and the increment are a single UPDATE guarded by
// used_count < limit_snapshot, so two concurrent calls contending for the
// last unit serialize on the row lock and exactly one of them matches.
// Returns true when a unit was consumed, false when the quota is exhausted.
func (q *Queries) ConsumeQuota(ctx context.Context, userID uuid.UUID, period string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE usage_records
		SET used_count = used_count + 1, updated_at = now()
		WHERE user_id = $1 AND period = $2 AND used_count < limit_snapshot`,
		userID, period,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListUsageHistory returns all ledger rows for a user, newest period first.
// Old periods are retained indefinitely for auditing.
func (q *Queries) ListUsageHistory(ctx context.Context, userID uuid.UUID) ([]*domain.UsageRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+usageColumns+`
		FROM usage_records WHERE user_id = $1 ORDER BY period DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.UsageRecord
	for rows.Next() {
		r, err := scanUsageRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
