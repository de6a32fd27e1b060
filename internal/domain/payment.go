package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks a checkout transaction through its lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records one checkout attempt against a subscription plan.
//
// TxRef is our reference ("translearn_" plus ten hex characters) passed to
// the provider at initiation and echoed back in webhooks and verification
// responses; it is the join key between provider events and our rows.
type Payment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TxRef     string
	Provider  string // "flutterwave" or "paystack"
	PlanName  string // Plan being purchased
	Amount    int64  // Minor currency unit
	Currency  string // e.g. "KES", "NGN"
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlanDuration is how long a paid plan stays active after a successful
// payment before it lapses back to free.
const PlanDuration = 30 * 24 * time.Hour
