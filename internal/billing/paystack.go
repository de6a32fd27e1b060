package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const paystackBaseURL = "https://api.paystack.co"

// paystack implements Provider against the Paystack REST API.
type paystack struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

func newPaystack(cfg Config, client *http.Client) *paystack {
	secret := cfg.WebhookSecret
	if secret == "" {
		// Paystack signs webhooks with the account secret key.
		secret = cfg.SecretKey
	}
	return &paystack{
		secretKey:     cfg.SecretKey,
		webhookSecret: secret,
		baseURL:       paystackBaseURL,
		client:        client,
	}
}

func (p *paystack) Name() string { return ProviderPaystack }

func (p *paystack) InitiatePayment(ctx context.Context, params InitiateParams) (*Checkout, error) {
	// Paystack takes amounts in the minor unit.
	payload := map[string]any{
		"email":        params.Email,
		"amount":       params.Amount,
		"currency":     params.Currency,
		"reference":    params.TxRef,
		"callback_url": params.RedirectURL,
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/transaction/initialize", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || resp.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack: initiate payment: %s", resp.Message)
	}

	return &Checkout{PaymentURL: resp.Data.AuthorizationURL, TxRef: params.TxRef}, nil
}

func (p *paystack) VerifyPayment(ctx context.Context, txRef string) (*Verification, error) {
	endpoint := "/transaction/verify/" + url.PathEscape(txRef)

	var resp struct {
		Status bool `json:"status"`
		Data   struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := p.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	v := &Verification{
		TxRef:    resp.Data.Reference,
		Amount:   resp.Data.Amount,
		Currency: resp.Data.Currency,
	}
	switch resp.Data.Status {
	case "success":
		v.Status = VerificationSucceeded
	case "failed", "abandoned":
		v.Status = VerificationFailed
	default:
		v.Status = VerificationPending
	}
	return v, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header, an
// HMAC-SHA512 of the raw payload keyed with the secret key.
func (p *paystack) VerifyWebhookSignature(payload []byte, signature string) error {
	if p.webhookSecret == "" {
		return fmt.Errorf("paystack: webhook secret not configured")
	}
	mac := hmac.New(sha512.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("paystack: webhook signature mismatch")
	}
	return nil
}

func (p *paystack) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("paystack: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *paystack) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("paystack: build request: %w", err)
	}
	return p.do(req, out)
}

func (p *paystack) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paystack: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack: unexpected status %d: %s", resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("paystack: decode response: %w", err)
	}
	return nil
}
