package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/worker"
	"golang.org/x/text/language"
)

// TranslationService defines operations for resource translations.
//
// Translation text is produced asynchronously: Request creates a pending row
// and enqueues a background job; the job fills the row in via the configured
// AI provider.
type TranslationService interface {
	// Request queues generation of a translation into targetLanguage.
	// Idempotent per (resource, language): re-requesting resets the existing
	// row to pending and queues a fresh job.
	Request(ctx context.Context, resourceID uuid.UUID, targetLanguage string) (*domain.Translation, error)

	// ListForResource returns all translations of a resource.
	ListForResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.Translation, error)
}

type translationService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewTranslationService creates a new TranslationService.
func NewTranslationService(queries *repository.Queries, logger *slog.Logger) TranslationService {
	return &translationService{queries: queries, logger: logger}
}

func (s *translationService) Request(ctx context.Context, resourceID uuid.UUID, targetLanguage string) (*domain.Translation, error) {
	const op = "translation.request"

	tag, err := language.Parse(targetLanguage)
	if err != nil {
		return nil, domain.NewValidationError(op, "target_language", "not a valid language tag")
	}

	resource, err := s.queries.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "resource", resourceID.String())
		}
		return nil, domain.Internal(err, op, "failed to load resource")
	}
	if resource.MatchesLanguage(tag.String()) {
		return nil, domain.Invalid(op, "resource is already in this language")
	}

	translation, err := s.queries.CreatePendingTranslation(ctx, resourceID, tag.String())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create translation")
	}

	if _, err := worker.EnqueueTranslateResource(ctx, s.queries, translation.ID); err != nil {
		return nil, domain.Internal(err, op, "failed to enqueue translation job")
	}

	s.logger.Info("translation requested",
		"resource_id", resourceID, "target_language", tag.String(), "translation_id", translation.ID)
	return translation, nil
}

func (s *translationService) ListForResource(ctx context.Context, resourceID uuid.UUID) ([]*domain.Translation, error) {
	const op = "translation.list"

	translations, err := s.queries.ListTranslations(ctx, resourceID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list translations")
	}
	return translations, nil
}
