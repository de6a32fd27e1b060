package ai

import (
	"context"
	"fmt"
)

// MockProvider returns deterministic pseudo-translations. Used in tests and
// local development where no API key is available.
type MockProvider struct {
	// Err, when set, is returned by every Translate call.
	Err error
}

// NewMockProvider creates a mock translation provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Translate(_ context.Context, req TranslationRequest) (*TranslationResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &TranslationResult{
		Text:  fmt.Sprintf("[%s] %s", req.TargetLanguage, req.Text),
		Model: "mock",
	}, nil
}
