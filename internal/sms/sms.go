// Package sms delivers text messages through the Africa's Talking gateway.
// Used to send resource download links to USSD users on feature phones.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	liveBaseURL    = "https://api.africastalking.com/version1"
	sandboxBaseURL = "https://api.sandbox.africastalking.com/version1"

	// sandboxUsername switches the client to the Africa's Talking sandbox.
	sandboxUsername = "sandbox"

	requestTimeout = 30 * time.Second
)

// Sender delivers a single SMS message.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// Config holds Africa's Talking credentials.
type Config struct {
	Username string // Account username; "sandbox" targets the sandbox API
	APIKey   string
	From     string // Optional sender ID or short code
}

// Client is the Africa's Talking SMS client.
type Client struct {
	username string
	apiKey   string
	from     string
	baseURL  string
	client   *http.Client
}

// NewClient creates an Africa's Talking SMS client. The sandbox endpoint is
// selected automatically when the username is "sandbox".
func NewClient(cfg Config) *Client {
	baseURL := liveBaseURL
	if cfg.Username == sandboxUsername {
		baseURL = sandboxBaseURL
	}
	return &Client{
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Send delivers a message to a single phone number in international format.
func (c *Client) Send(ctx context.Context, to, message string) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("to", to)
	form.Set("message", message)
	if c.from != "" {
		form.Set("from", c.from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("sms: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms: unexpected status %d: %s", resp.StatusCode, data)
	}

	// The gateway reports per-recipient delivery status inside a 2xx
	// response, so a successful HTTP exchange is not enough.
	var parsed struct {
		SMSMessageData struct {
			Recipients []struct {
				Number string `json:"number"`
				Status string `json:"status"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("sms: decode response: %w", err)
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return fmt.Errorf("sms: gateway accepted no recipients")
	}
	for _, r := range parsed.SMSMessageData.Recipients {
		if r.Status != "Success" {
			return fmt.Errorf("sms: delivery to %s failed: %s", r.Number, r.Status)
		}
	}
	return nil
}
