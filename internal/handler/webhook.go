package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/translearn/translearn/internal/billing"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// maxWebhookBody bounds provider webhook payloads.
const maxWebhookBody = 1 << 20

// WebhookHandler settles payments from provider webhook events.
type WebhookHandler struct {
	payments service.PaymentService
	provider billing.Provider
	logger   *slog.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(payments service.PaymentService, provider billing.Provider, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		provider: provider,
		logger:   logger,
	}
}

// webhookEvent covers the fields shared by Flutterwave and Paystack charge
// events. Flutterwave reports our reference as data.tx_ref, Paystack as
// data.reference.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		TxRef     string `json:"tx_ref"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Handle processes POST /api/webhooks/payments. Unverifiable signatures get
// 401; everything after a valid signature answers 200 so the provider stops
// retrying events we have already settled or cannot match.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "unreadable webhook body"))
		return
	}

	signature := r.Header.Get("verif-hash")
	if signature == "" {
		signature = r.Header.Get("x-paystack-signature")
	}
	if err := h.provider.VerifyWebhookSignature(body, signature); err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		ErrorResponse(w, r, h.logger, domain.Unauthorized("", "invalid webhook signature"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid webhook payload"))
		return
	}

	txRef := event.Data.TxRef
	if txRef == "" {
		txRef = event.Data.Reference
	}
	if txRef == "" {
		WriteJSON(w, http.StatusOK, envelope{"message": "ignored"})
		return
	}

	succeeded := event.Data.Status == "successful" || event.Data.Status == "success"

	if err := h.payments.HandleWebhook(r.Context(), txRef, succeeded); err != nil {
		var appErr *domain.Error
		if errors.As(err, &appErr) && appErr.Code == domain.ENOTFOUND {
			// Not one of ours; acknowledge so the provider stops retrying.
			h.logger.Warn("webhook for unknown payment", "tx_ref", txRef)
			WriteJSON(w, http.StatusOK, envelope{"message": "ignored"})
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"message": "processed"})
}
