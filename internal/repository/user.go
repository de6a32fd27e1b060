package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
)

const userColumns = `id, email, password_hash, full_name, role, phone, country, plan_name, plan_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...interface{}) error }) (*domain.User, error) {
	var u domain.User
	var phone, country sql.NullString
	var expires sql.NullTime
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&phone, &country, &u.PlanName, &expires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.Country = country.String
	if expires.Valid {
		t := expires.Time
		u.PlanExpiresAt = &t
	}
	return &u, nil
}

// CreateUserParams contains the fields for inserting a user row.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	Phone        string
	Country      string
}

// CreateUser inserts a new user on the free plan and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, full_name, role, phone, country)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.FullName, arg.Role, arg.Phone, arg.Country,
	)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email (unique, lowercased at write time).
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByPhone fetches a user by phone number. Used by the USSD gateway to
// attach a browsing session to a registered account.
func (q *Queries) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	return scanUser(row)
}

// ListUserIDs returns the IDs of every user. Used by the period seeding job.
func (q *Queries) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateUserPlan sets the user's plan and its expiry. Called by the payment
// layer after a verified payment; the quota ledger picks the new plan up when
// the next period row is created.
func (q *Queries) UpdateUserPlan(ctx context.Context, userID uuid.UUID, planName string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET plan_name = $2, plan_expires_at = $3, updated_at = now()
		WHERE id = $1`,
		userID, planName, expiresAt,
	)
	return err
}

// CreateSession inserts a session row holding the hashed token.
func (q *Queries) CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*domain.Session, error) {
	var s domain.Session
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token_hash, expires_at, created_at`,
		userID, tokenHash, expiresAt,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByTokenHash fetches a session by its hashed token.
func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var s domain.Session
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSessionByTokenHash removes a single session (logout). Idempotent.
func (q *Queries) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
