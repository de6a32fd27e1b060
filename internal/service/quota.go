// Package service contains the business logic layer.
//
// This file implements the upload-quota subsystem: the advisory guard, the
// atomic consume operation, and the idempotent monthly period seeding.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// QuotaStore is the persistence surface the quota service needs. It is
// satisfied by *repository.Queries, both the pooled handle and a
// transaction-bound one from WithTx.
type QuotaStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	EnsureUsageRecord(ctx context.Context, userID uuid.UUID, period string, limitSnapshot int) (*domain.UsageRecord, error)
	ConsumeQuota(ctx context.Context, userID uuid.UUID, period string) (bool, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	ListUsageHistory(ctx context.Context, userID uuid.UUID) ([]*domain.UsageRecord, error)
}

// QuotaService defines operations for checking and enforcing monthly upload
// quotas.
type QuotaService interface {
	// Check returns the advisory quota decision for the user's current
	// period. It is read-only apart from lazily creating the period row and
	// may be polled freely; repeated calls without an intervening consume
	// always report the same remaining count.
	Check(ctx context.Context, userID uuid.UUID) (*domain.QuotaDecision, error)

	// TryConsume atomically spends one upload unit for the current period.
	// Returns false, with no mutation, when the quota is exhausted. Callers
	// must invoke it exactly once per logical upload attempt.
	TryConsume(ctx context.Context, userID uuid.UUID) (bool, error)

	// ConsumeWithin is TryConsume running against a caller-supplied store,
	// typically a transaction-bound repository. The upload endpoint persists
	// the resource and consumes quota in one transaction so both happen or
	// neither does.
	ConsumeWithin(ctx context.Context, store QuotaStore, userID uuid.UUID) (bool, error)

	// SeedCurrentPeriod ensures a ledger row exists for every user in the
	// current period. Creation only: rows that already exist, including ones
	// with consumed units, are left untouched. Safe to run any number of
	// times; returns the number of users seeded.
	SeedCurrentPeriod(ctx context.Context) (int, error)

	// GetUsageHistory returns the user's ledger rows, newest period first.
	GetUsageHistory(ctx context.Context, userID uuid.UUID) ([]*domain.UsageRecord, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  QuotaStore
	logger *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:  store,
		logger: logger,
	}
}

// ensurePeriodRow resolves (or lazily creates) the ledger row for the user's
// current period against the given store. The limit snapshot is taken from
// the user's effective plan at creation time; an existing row keeps whatever
// snapshot it was created with.
func (s *quotaService) ensurePeriodRow(ctx context.Context, store QuotaStore, userID uuid.UUID) (*domain.UsageRecord, error) {
	const op = "quota.ensure_period_row"

	user, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load user")
	}

	limit := domain.LimitFor(user.EffectivePlan())
	record, err := store.EnsureUsageRecord(ctx, userID, domain.CurrentPeriod(), limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to ensure usage record")
	}
	return record, nil
}

// Check returns the advisory quota decision for the user's current period.
func (s *quotaService) Check(ctx context.Context, userID uuid.UUID) (*domain.QuotaDecision, error) {
	record, err := s.ensurePeriodRow(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return domain.NewQuotaDecision(record), nil
}

// TryConsume atomically spends one upload unit for the current period.
func (s *quotaService) TryConsume(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.ConsumeWithin(ctx, s.store, userID)
}

// ConsumeWithin runs the consume against a caller-supplied store.
func (s *quotaService) ConsumeWithin(ctx context.Context, store QuotaStore, userID uuid.UUID) (bool, error) {
	const op = "quota.try_consume"

	record, err := s.ensurePeriodRow(ctx, store, userID)
	if err != nil {
		return false, err
	}

	consumed, err := store.ConsumeQuota(ctx, userID, record.Period)
	if err != nil {
		return false, domain.Internal(err, op, "failed to consume quota unit")
	}

	if !consumed {
		s.logger.Info("upload quota exhausted",
			"user_id", userID,
			"period", record.Period,
			"used", record.UsedCount,
			"limit", record.LimitSnapshot,
		)
		metrics.QuotaDenials.Inc()
	}
	return consumed, nil
}

// SeedCurrentPeriod ensures a ledger row exists for every user.
func (s *quotaService) SeedCurrentPeriod(ctx context.Context) (int, error) {
	const op = "quota.seed_current_period"

	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to list users")
	}

	period := domain.CurrentPeriod()
	seeded := 0
	for _, userID := range userIDs {
		if _, err := s.ensurePeriodRow(ctx, s.store, userID); err != nil {
			// Keep going; a single bad row must not block the rest of the
			// fleet, and the next run will pick the stragglers up.
			s.logger.Error("failed to seed usage period", "user_id", userID, "period", period, "error", err)
			continue
		}
		seeded++
	}

	s.logger.Info("usage period seeded", "period", period, "users", seeded)
	return seeded, nil
}

// GetUsageHistory returns the user's ledger rows, newest period first.
func (s *quotaService) GetUsageHistory(ctx context.Context, userID uuid.UUID) ([]*domain.UsageRecord, error) {
	const op = "quota.usage_history"

	records, err := s.store.ListUsageHistory(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list usage history")
	}
	return records, nil
}
