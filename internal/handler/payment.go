package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/translearn/translearn/internal/auth"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/service"
)

// PaymentHandler serves subscription checkout endpoints.
type PaymentHandler struct {
	payments service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates the payment handler.
func NewPaymentHandler(payments service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type paymentResponse struct {
	TxRef     string    `json:"tx_ref"`
	Provider  string    `json:"provider"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		TxRef:     p.TxRef,
		Provider:  p.Provider,
		Plan:      p.PlanName,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
}

// Checkout handles POST /api/payments/checkout and returns the provider's
// payment page URL.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var input struct {
		Plan        string `json:"plan"`
		Currency    string `json:"currency"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	checkout, err := h.payments.InitiateCheckout(r.Context(), user.ID, input.Plan, input.Currency, input.RedirectURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{
		"payment_url": checkout.PaymentURL,
		"tx_ref":      checkout.TxRef,
	})
}

// Verify handles GET /api/payments/verify?tx_ref=..., called from the
// redirect page after the user completes (or abandons) checkout.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if auth.GetUser(r.Context()) == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	txRef := r.URL.Query().Get("tx_ref")
	if txRef == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "missing tx_ref parameter"))
		return
	}

	payment, err := h.payments.VerifyPayment(r.Context(), txRef)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, envelope{"payment": newPaymentResponse(payment)})
}

// List handles GET /api/payments, the caller's payment history.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	payments, err := h.payments.ListForUser(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, newPaymentResponse(p))
	}
	WriteJSON(w, http.StatusOK, envelope{"payments": out})
}
