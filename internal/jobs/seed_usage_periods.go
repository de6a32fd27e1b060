package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/service"
	"github.com/translearn/translearn/internal/worker"
)

// SeedUsagePeriodsHandler creates the usage ledger row for every user at the
// start of a new month. Seeding is creation-only, so redelivered or
// overlapping runs never touch counts that uploads have already consumed.
type SeedUsagePeriodsHandler struct {
	quota   service.QuotaService
	queries *repository.Queries
	logger  *slog.Logger
}

// NewSeedUsagePeriodsHandler creates the handler.
func NewSeedUsagePeriodsHandler(quota service.QuotaService, queries *repository.Queries, logger *slog.Logger) *SeedUsagePeriodsHandler {
	return &SeedUsagePeriodsHandler{quota: quota, queries: queries, logger: logger}
}

// Type returns the job type this handler processes.
func (h *SeedUsagePeriodsHandler) Type() string {
	return worker.JobTypeSeedUsagePeriods
}

// Handle seeds the current period. A payload period that doesn't match the
// current month means the job sat in the queue past its window; rows for
// the actual current month are still correct to create, so the mismatch is
// only logged.
func (h *SeedUsagePeriodsHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SeedUsagePeriodsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	current := domain.CurrentPeriod()
	if p.Period != "" && p.Period != current {
		h.logger.Warn("seed job ran outside its target period",
			"target_period", p.Period,
			"current_period", current,
		)
	}

	seeded, err := h.quota.SeedCurrentPeriod(ctx)
	if err != nil {
		return fmt.Errorf("seed usage periods: %w", err)
	}

	h.logger.Info("usage periods seeded", "period", current, "users", seeded)

	// Line up the next run with the start of the following month. Seeding
	// is creation-only, so an extra job from an overlapping trigger just
	// runs as a no-op.
	nextStart := nextMonthStart(time.Now().UTC())
	if _, err := worker.EnqueueSeedUsagePeriods(ctx, h.queries, domain.PeriodOf(nextStart), nextStart); err != nil {
		h.logger.Warn("failed to schedule next seed run", "error", err)
	}
	return nil
}

// nextMonthStart returns midnight UTC on the first day of the month after t.
func nextMonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
