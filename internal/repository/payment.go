package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
)

const paymentColumns = `id, user_id, tx_ref, provider, plan_name, amount, currency, status, created_at, updated_at`

func scanPayment(row interface{ Scan(dest ...interface{}) error }) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.TxRef, &p.Provider, &p.PlanName,
		&p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment records a newly initiated checkout in pending state.
func (q *Queries) CreatePayment(ctx context.Context, arg domain.Payment) (*domain.Payment, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO payments (user_id, tx_ref, provider, plan_name, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING `+paymentColumns,
		arg.UserID, arg.TxRef, arg.Provider, arg.PlanName, arg.Amount, arg.Currency,
	)
	return scanPayment(row)
}

// GetPaymentByTxRef fetches a payment by our transaction reference.
func (q *Queries) GetPaymentByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE tx_ref = $1`, txRef)
	return scanPayment(row)
}

// MarkPaymentStatus transitions a payment out of pending. The guard on the
// current status makes webhook redelivery idempotent: a payment that already
// succeeded is not rewritten, and the caller can tell from the row count.
func (q *Queries) MarkPaymentStatus(ctx context.Context, txRef string, status domain.PaymentStatus) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE tx_ref = $1 AND status = 'pending'`,
		txRef, status,
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

// ListPaymentsByUser returns a user's payment history, newest first.
func (q *Queries) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
