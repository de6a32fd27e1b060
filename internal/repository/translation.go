package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/translearn/translearn/internal/domain"
)

const translationColumns = `id, resource_id, target_language, translated_text, summary, tts_url, status, created_at, updated_at`

func scanTranslation(row interface{ Scan(dest ...interface{}) error }) (*domain.Translation, error) {
	var t domain.Translation
	var text, summary, ttsURL sql.NullString
	err := row.Scan(
		&t.ID, &t.ResourceID, &t.TargetLanguage, &text, &summary, &ttsURL,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TranslatedText = text.String
	t.Summary = summary.String
	t.TTSURL = ttsURL.String
	return &t, nil
}

// CreatePendingTranslation inserts a placeholder row for an async translation,
// or resets an existing (resource, language) row back to pending.
func (q *Queries) CreatePendingTranslation(ctx context.Context, resourceID uuid.UUID, targetLanguage string) (*domain.Translation, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO translations (resource_id, target_language, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (resource_id, target_language)
		DO UPDATE SET status = 'pending', updated_at = now()
		RETURNING `+translationColumns,
		resourceID, targetLanguage,
	)
	return scanTranslation(row)
}

// CompleteTranslation stores the produced text and marks the row completed.
func (q *Queries) CompleteTranslation(ctx context.Context, id uuid.UUID, translatedText, summary, ttsURL string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE translations
		SET translated_text = $2, summary = NULLIF($3, ''), tts_url = NULLIF($4, ''),
		    status = 'completed', updated_at = now()
		WHERE id = $1`,
		id, translatedText, summary, ttsURL,
	)
	return err
}

// FailTranslation marks the row failed so it can be retried by re-requesting.
func (q *Queries) FailTranslation(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE translations SET status = 'failed', updated_at = now() WHERE id = $1`,
		id,
	)
	return err
}

// GetTranslation fetches a translation row by ID.
func (q *Queries) GetTranslation(ctx context.Context, id uuid.UUID) (*domain.Translation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+translationColumns+` FROM translations WHERE id = $1`, id)
	return scanTranslation(row)
}

// ListTranslations returns all translations of a resource.
func (q *Queries) ListTranslations(ctx context.Context, resourceID uuid.UUID) ([]*domain.Translation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+translationColumns+`
		FROM translations WHERE resource_id = $1 ORDER BY target_language`,
		resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []*domain.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	return translations, rows.Err()
}
