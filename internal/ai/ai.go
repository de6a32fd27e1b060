// Package ai provides machine translation of learning resource content.
//
// The Provider interface abstracts the translation backend so the worker
// can run against a hosted model in production and a deterministic mock in
// tests and local development.
package ai

import (
	"context"
	"fmt"
)

// Provider generates translations of resource content.
type Provider interface {
	// Translate renders the given text into the target language.
	// sourceLanguage and targetLanguage are BCP 47 tags.
	Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error)
}

// TranslationRequest describes a single translation call.
type TranslationRequest struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

// TranslationResult is the output of a translation call.
type TranslationResult struct {
	Text string
	// Model identifies which backend produced the translation, recorded
	// alongside the translation for provenance.
	Model string
}

// Config selects and configures the translation backend.
type Config struct {
	Provider string // "openai" or "mock"
	APIKey   string
	BaseURL  string // Override for OpenAI-compatible endpoints
	Model    string
}

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// New creates the configured translation provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIProvider(cfg), nil
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %q", cfg.Provider)
	}
}
