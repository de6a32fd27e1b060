// Package jobs contains the background job handlers registered with the
// worker pool: resource translation, monthly usage seeding, and SMS link
// delivery.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/translearn/translearn/internal/ai"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/worker"
)

// summaryMaxRunes bounds the stored summary so it fits a USSD screen.
const summaryMaxRunes = 200

// TranslateResourceHandler generates a pending translation through the AI
// provider and stores the result.
type TranslateResourceHandler struct {
	queries  *repository.Queries
	provider ai.Provider
	logger   *slog.Logger
}

// NewTranslateResourceHandler creates the handler.
func NewTranslateResourceHandler(queries *repository.Queries, provider ai.Provider, logger *slog.Logger) *TranslateResourceHandler {
	return &TranslateResourceHandler{
		queries:  queries,
		provider: provider,
		logger:   logger,
	}
}

// Type returns the job type this handler processes.
func (h *TranslateResourceHandler) Type() string {
	return worker.JobTypeTranslateResource
}

// Handle generates the translation. A missing translation or resource row
// is permanent; provider failures are retried, and the translation row is
// marked failed only once retries are exhausted by the worker.
func (h *TranslateResourceHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.TranslateResourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	translation, err := h.queries.GetTranslation(ctx, p.TranslationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("translation %s not found", p.TranslationID))
		}
		return fmt.Errorf("fetch translation: %w", err)
	}
	if translation.Status == domain.TranslationStatusCompleted {
		// Already done, likely a redelivered job.
		return nil
	}

	resource, err := h.queries.GetResource(ctx, translation.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("resource %s not found", translation.ResourceID))
		}
		return fmt.Errorf("fetch resource: %w", err)
	}

	source := resource.Title
	if resource.Description != "" {
		source = resource.Title + "\n\n" + resource.Description
	}

	result, err := h.provider.Translate(ctx, ai.TranslationRequest{
		Text:           source,
		SourceLanguage: resource.Language,
		TargetLanguage: translation.TargetLanguage,
	})
	if err != nil {
		if markErr := h.queries.FailTranslation(ctx, translation.ID); markErr != nil {
			h.logger.Error("mark translation failed", "translation_id", translation.ID, "error", markErr)
		}
		metrics.TranslationsGenerated.WithLabelValues("failed").Inc()
		return fmt.Errorf("translate: %w", err)
	}

	summary := summarize(result.Text)
	if err := h.queries.CompleteTranslation(ctx, translation.ID, result.Text, summary, ""); err != nil {
		return fmt.Errorf("store translation: %w", err)
	}

	metrics.TranslationsGenerated.WithLabelValues("completed").Inc()
	h.logger.Info("translation generated",
		"translation_id", translation.ID,
		"resource_id", resource.ID,
		"target_language", translation.TargetLanguage,
		"model", result.Model,
	)
	return nil
}

// summarize produces the short on-screen summary from the translated text.
func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryMaxRunes {
		return text
	}
	return string(runes[:summaryMaxRunes]) + "..."
}
