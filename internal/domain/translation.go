package domain

import (
	"time"

	"github.com/google/uuid"
)

// TranslationStatus tracks the lifecycle of an async translation job.
type TranslationStatus string

const (
	TranslationStatusPending   TranslationStatus = "pending"
	TranslationStatusCompleted TranslationStatus = "completed"
	TranslationStatusFailed    TranslationStatus = "failed"
)

// Translation is a machine (or manually supplied) translation of a resource
// into a target language. At most one translation exists per
// (resource, target_language) pair; regeneration overwrites it.
type Translation struct {
	ID             uuid.UUID
	ResourceID     uuid.UUID
	TargetLanguage string // BCP 47 tag
	TranslatedText string
	Summary        string
	TTSURL         string // Optional text-to-speech audio link
	Status         TranslationStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
