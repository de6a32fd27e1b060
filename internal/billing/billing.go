// Package billing provides payment-provider integration for subscription
// purchases. Two providers are supported, Flutterwave and Paystack, both
// driven over their plain REST APIs.
package billing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderFlutterwave = "flutterwave"
	ProviderPaystack    = "paystack"
)

// requestTimeout bounds every outbound call to a payment provider.
const requestTimeout = 30 * time.Second

// Provider defines the interface for payment operations.
type Provider interface {
	// Name returns the provider identifier stored on payment rows.
	Name() string

	// InitiatePayment starts a checkout and returns the URL to redirect the
	// user to. The TxRef in params is our reference; the provider echoes it
	// back in webhooks and verification responses.
	InitiatePayment(ctx context.Context, params InitiateParams) (*Checkout, error)

	// VerifyPayment fetches the authoritative status of a transaction.
	VerifyPayment(ctx context.Context, txRef string) (*Verification, error)

	// VerifyWebhookSignature checks the signature header of an incoming
	// webhook against the raw payload. Returns an error for any mismatch.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// InitiateParams contains the inputs for starting a checkout.
type InitiateParams struct {
	TxRef       string
	Amount      int64 // Minor currency unit
	Currency    string
	Email       string
	Phone       string
	RedirectURL string
}

// Checkout is the result of a successfully initiated payment.
type Checkout struct {
	PaymentURL string
	TxRef      string
}

// VerificationStatus is the provider-reported outcome of a transaction.
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationSucceeded VerificationStatus = "succeeded"
	VerificationFailed    VerificationStatus = "failed"
)

// Verification is the authoritative transaction state fetched from the
// provider.
type Verification struct {
	TxRef    string
	Status   VerificationStatus
	Amount   int64 // Minor currency unit
	Currency string
}

// Config holds provider credentials.
type Config struct {
	Provider      string // "flutterwave" or "paystack"
	SecretKey     string
	WebhookSecret string // Flutterwave verif-hash / Paystack falls back to SecretKey
}

// New creates the configured payment provider.
// Returns an error for an unknown provider name.
func New(cfg Config, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	switch cfg.Provider {
	case ProviderFlutterwave:
		return newFlutterwave(cfg, client), nil
	case ProviderPaystack:
		return newPaystack(cfg, client), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %q", cfg.Provider)
	}
}

// NewTxRef generates a transaction reference: "translearn_" plus ten hex
// characters, matching the format stored on payment rows.
func NewTxRef() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// treat that as unrecoverable rather than issuing guessable refs.
		panic(fmt.Sprintf("billing: generate tx ref: %v", err))
	}
	return "translearn_" + hex.EncodeToString(b)
}
