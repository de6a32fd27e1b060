package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
	openAITimeout        = 2 * time.Minute
)

// openAIProvider translates text through an OpenAI-compatible chat
// completions endpoint.
type openAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newOpenAIProvider(cfg Config) *openAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	return &openAIProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: openAITimeout},
	}
}

func (p *openAIProvider) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	system := fmt.Sprintf(
		"You are a professional translator for educational content. "+
			"Translate the user's text from %s to %s. "+
			"Preserve formatting and keep technical terms accurate for classroom use. "+
			"Reply with only the translated text.",
		req.SourceLanguage, req.TargetLanguage,
	)

	body, err := json.Marshal(map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": req.Text},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: unexpected status %d: %s", resp.StatusCode, data)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: empty completion")
	}

	return &TranslationResult{
		Text:  parsed.Choices[0].Message.Content,
		Model: p.model,
	}, nil
}
