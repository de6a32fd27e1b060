package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// TranslationHandler serves resource translation endpoints.
type TranslationHandler struct {
	translations service.TranslationService
	logger       *slog.Logger
}

// NewTranslationHandler creates the translation handler.
func NewTranslationHandler(translations service.TranslationService, logger *slog.Logger) *TranslationHandler {
	return &TranslationHandler{translations: translations, logger: logger}
}

type translationResponse struct {
	ID             string    `json:"id"`
	ResourceID     string    `json:"resource_id"`
	TargetLanguage string    `json:"target_language"`
	TranslatedText string    `json:"translated_text,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	TTSURL         string    `json:"tts_url,omitempty"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newTranslationResponse(t *domain.Translation) translationResponse {
	return translationResponse{
		ID:             t.ID.String(),
		ResourceID:     t.ResourceID.String(),
		TargetLanguage: t.TargetLanguage,
		TranslatedText: t.TranslatedText,
		Summary:        t.Summary,
		TTSURL:         t.TTSURL,
		Status:         string(t.Status),
		UpdatedAt:      t.UpdatedAt,
	}
}

// Request handles POST /api/resources/{id}/translations. The translation is
// generated asynchronously; poll the list endpoint for completion.
func (h *TranslationHandler) Request(w http.ResponseWriter, r *http.Request) {
	if auth.GetUser(r.Context()) == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	resourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	var input struct {
		TargetLanguage string `json:"target_language"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	translation, err := h.translations.Request(r.Context(), resourceID, strings.TrimSpace(input.TargetLanguage))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, envelope{"translation": newTranslationResponse(translation)})
}

// List handles GET /api/resources/{id}/translations.
func (h *TranslationHandler) List(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid resource id"))
		return
	}

	translations, err := h.translations.ListForResource(r.Context(), resourceID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]translationResponse, 0, len(translations))
	for _, t := range translations {
		out = append(out, newTranslationResponse(t))
	}
	WriteJSON(w, http.StatusOK, envelope{"translations": out})
}
