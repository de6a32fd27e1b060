// Package domain contains core business types and interfaces.
//
// This file defines the types for the monthly upload-quota ledger.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one row of the upload-quota ledger: the consumption counter
// for a single user in a single calendar month.
//
// LimitSnapshot is copied from the user's plan when the row is created and is
// never re-derived afterwards, so a mid-month plan change only takes effect
// when the next period's row is created. Rows are never deleted; old periods
// remain as audit history.
type UsageRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Period        string // "YYYY-MM", UTC
	UsedCount     int
	LimitSnapshot int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns the number of uploads left in the period, never negative.
func (r *UsageRecord) Remaining() int {
	if remaining := r.LimitSnapshot - r.UsedCount; remaining > 0 {
		return remaining
	}
	return 0
}

// Exhausted reports whether the period's quota is fully consumed.
func (r *UsageRecord) Exhausted() bool {
	return r.UsedCount >= r.LimitSnapshot
}

// QuotaDecision is the advisory answer of the quota guard. It is transient
// and never persisted; calling the guard repeatedly without consuming quota
// always yields the same decision.
type QuotaDecision struct {
	CanUpload bool   `json:"can_upload"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
}

// NewQuotaDecision derives a decision from a ledger row.
func NewQuotaDecision(record *UsageRecord) *QuotaDecision {
	d := &QuotaDecision{
		Used:      record.UsedCount,
		Limit:     record.LimitSnapshot,
		Remaining: record.Remaining(),
		CanUpload: !record.Exhausted(),
	}
	if d.CanUpload {
		d.Reason = fmt.Sprintf("you can upload %d more resources this month", d.Remaining)
	} else {
		d.Reason = "monthly upload limit reached; upgrade your plan for more uploads"
	}
	return d
}

// CurrentPeriod returns the canonical period key ("YYYY-MM") for the current
// UTC date. Every ledger read and write keys off this function so month
// boundaries are consistent across the system.
func CurrentPeriod() string {
	return PeriodOf(time.Now())
}

// PeriodOf returns the period key for an arbitrary instant, evaluated in UTC.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
