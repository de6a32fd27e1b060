package billing

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// flutterwave implements Provider against the Flutterwave v3 REST API.
type flutterwave struct {
	secretKey   string
	webhookHash string
	baseURL     string
	client      *http.Client
}

func newFlutterwave(cfg Config, client *http.Client) *flutterwave {
	return &flutterwave{
		secretKey:   cfg.SecretKey,
		webhookHash: cfg.WebhookSecret,
		baseURL:     flutterwaveBaseURL,
		client:      client,
	}
}

func (f *flutterwave) Name() string { return ProviderFlutterwave }

func (f *flutterwave) InitiatePayment(ctx context.Context, params InitiateParams) (*Checkout, error) {
	// Flutterwave takes amounts in the major unit.
	payload := map[string]any{
		"tx_ref":       params.TxRef,
		"amount":       strconv.FormatInt(params.Amount/100, 10),
		"currency":     params.Currency,
		"redirect_url": params.RedirectURL,
		"customer": map[string]any{
			"email":       params.Email,
			"phonenumber": params.Phone,
		},
		"customizations": map[string]any{
			"title": "TransLearn LMS",
		},
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := f.post(ctx, "/payments", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" || resp.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave: initiate payment: %s", resp.Message)
	}

	return &Checkout{PaymentURL: resp.Data.Link, TxRef: params.TxRef}, nil
}

func (f *flutterwave) VerifyPayment(ctx context.Context, txRef string) (*Verification, error) {
	endpoint := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			TxRef    string  `json:"tx_ref"`
			Status   string  `json:"status"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"data"`
	}
	if err := f.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	v := &Verification{
		TxRef:    resp.Data.TxRef,
		Amount:   int64(resp.Data.Amount * 100),
		Currency: resp.Data.Currency,
	}
	switch resp.Data.Status {
	case "successful":
		v.Status = VerificationSucceeded
	case "failed":
		v.Status = VerificationFailed
	default:
		v.Status = VerificationPending
	}
	return v, nil
}

// VerifyWebhookSignature compares the verif-hash header against the
// configured secret hash. Flutterwave sends a static value rather than a
// payload signature.
func (f *flutterwave) VerifyWebhookSignature(payload []byte, signature string) error {
	if f.webhookHash == "" {
		return fmt.Errorf("flutterwave: webhook hash not configured")
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(f.webhookHash)) != 1 {
		return fmt.Errorf("flutterwave: webhook signature mismatch")
	}
	return nil
}

func (f *flutterwave) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("flutterwave: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("flutterwave: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(req, out)
}

func (f *flutterwave) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("flutterwave: build request: %w", err)
	}
	return f.do(req, out)
}

func (f *flutterwave) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+f.secretKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("flutterwave: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("flutterwave: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flutterwave: unexpected status %d: %s", resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("flutterwave: decode response: %w", err)
	}
	return nil
}
