package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/translearn/translearn/internal/repository"
)

// Job type identifiers. These must match the Type() of a registered handler.
const (
	JobTypeTranslateResource = "translate_resource"
	JobTypeSeedUsagePeriods  = "seed_usage_periods"
	JobTypeSendSMSLink       = "send_sms_link"
)

// Default retry budgets per job type. Translation calls an external AI
// provider and gets more attempts than the cheap database-only seed job.
const (
	defaultMaxAttempts     = 3
	translationMaxAttempts = 5
)

// TranslateResourcePayload is the payload for translate_resource jobs.
type TranslateResourcePayload struct {
	TranslationID uuid.UUID `json:"translation_id"`
}

// SeedUsagePeriodsPayload is the payload for seed_usage_periods jobs.
// An empty Period means the period current at execution time.
type SeedUsagePeriodsPayload struct {
	Period string `json:"period,omitempty"`
}

// SendSMSLinkPayload is the payload for send_sms_link jobs.
type SendSMSLinkPayload struct {
	PhoneNumber string    `json:"phone_number"`
	ResourceID  uuid.UUID `json:"resource_id"`
}

// EnqueueTranslateResource schedules background generation of a pending
// translation. The translation row must already exist in pending state.
func EnqueueTranslateResource(ctx context.Context, q *repository.Queries, translationID uuid.UUID) (repository.Job, error) {
	payload, err := json.Marshal(TranslateResourcePayload{TranslationID: translationID})
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal translate payload: %w", err)
	}
	return q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:     JobTypeTranslateResource,
		Payload:     payload,
		Priority:    0,
		MaxAttempts: translationMaxAttempts,
		ScheduledAt: time.Now(),
	})
}

// EnqueueSeedUsagePeriods schedules idempotent seeding of usage records for
// every user. Pass an empty period to seed whatever period is current when
// the job runs. scheduledAt lets callers line the job up with the start of
// the next calendar month.
func EnqueueSeedUsagePeriods(ctx context.Context, q *repository.Queries, period string, scheduledAt time.Time) (repository.Job, error) {
	payload, err := json.Marshal(SeedUsagePeriodsPayload{Period: period})
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal seed payload: %w", err)
	}
	return q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:     JobTypeSeedUsagePeriods,
		Payload:     payload,
		Priority:    10, // Seeding should run ahead of routine work
		MaxAttempts: defaultMaxAttempts,
		ScheduledAt: scheduledAt,
	})
}

// EnqueueSendSMSLink schedules delivery of a resource download link over SMS.
// Used by the USSD gateway, which must answer the session before the SMS
// gateway round trip completes.
func EnqueueSendSMSLink(ctx context.Context, q *repository.Queries, phoneNumber string, resourceID uuid.UUID) (repository.Job, error) {
	payload, err := json.Marshal(SendSMSLinkPayload{PhoneNumber: phoneNumber, ResourceID: resourceID})
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal sms payload: %w", err)
	}
	return q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:     JobTypeSendSMSLink,
		Payload:     payload,
		Priority:    5,
		MaxAttempts: defaultMaxAttempts,
		ScheduledAt: time.Now(),
	})
}
