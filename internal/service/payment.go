package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/translearn/translearn/internal/billing"
	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
)

// defaultCurrency is charged when the client doesn't specify one.
const defaultCurrency = "KES"

// =============================================================================
// Service Interface
// =============================================================================

// PaymentService handles subscription checkout and settlement.
type PaymentService interface {
	// InitiateCheckout starts a provider checkout for the given plan and
	// records a pending payment row. Returns the URL to redirect the user to.
	InitiateCheckout(ctx context.Context, userID uuid.UUID, planName, currency, redirectURL string) (*billing.Checkout, error)

	// VerifyPayment fetches the authoritative status from the provider and
	// settles the payment. Used by the post-redirect callback page.
	VerifyPayment(ctx context.Context, txRef string) (*domain.Payment, error)

	// HandleWebhook settles a payment from a provider webhook event. The
	// signature must already have been verified by the HTTP handler.
	// Settlement is idempotent; replayed events are ignored.
	HandleWebhook(ctx context.Context, txRef string, succeeded bool) error

	// ListForUser returns the user's payment history, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error)
}

type paymentService struct {
	db       *sql.DB
	queries  *repository.Queries
	provider billing.Provider
	users    UserService
	baseURL  string
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service. baseURL is the public URL
// of this deployment, used for the post-checkout redirect when the client
// does not supply one.
func NewPaymentService(db *sql.DB, queries *repository.Queries, provider billing.Provider, users UserService, baseURL string, logger *slog.Logger) PaymentService {
	return &paymentService{
		db:       db,
		queries:  queries,
		provider: provider,
		users:    users,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
	}
}

// =============================================================================
// Operations
// =============================================================================

func (s *paymentService) InitiateCheckout(ctx context.Context, userID uuid.UUID, planName, currency, redirectURL string) (*billing.Checkout, error) {
	const op = "payment.initiate_checkout"

	plan := domain.ParsePlan(planName)
	if !domain.ValidPlanName(planName) || plan == domain.PlanFree {
		return nil, domain.Invalid(op, "choose a paid plan: basic, premium, or enterprise")
	}
	if currency == "" {
		currency = defaultCurrency
	}
	if redirectURL == "" {
		redirectURL = s.baseURL + "/payments/complete"
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := domain.PlanPrice(plan)
	txRef := billing.NewTxRef()

	_, err = s.queries.CreatePayment(ctx, domain.Payment{
		UserID:   userID,
		TxRef:    txRef,
		Provider: s.provider.Name(),
		PlanName: planName,
		Amount:   amount,
		Currency: currency,
		Status:   domain.PaymentStatusPending,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record payment")
	}

	checkout, err := s.provider.InitiatePayment(ctx, billing.InitiateParams{
		TxRef:       txRef,
		Amount:      amount,
		Currency:    currency,
		Email:       user.Email,
		Phone:       user.Phone,
		RedirectURL: redirectURL,
	})
	if err != nil {
		// The pending row stays behind; verification against the provider
		// will mark it failed if the user never completes checkout.
		return nil, domain.Errorf(domain.EPAYMENT, op, "payment provider rejected the checkout")
	}

	s.logActivity(ctx, userID, domain.ActionPaymentInitiated, map[string]any{
		"tx_ref": txRef,
		"plan":   planName,
		"amount": amount,
	})

	s.logger.Info("checkout initiated",
		"user_id", userID,
		"tx_ref", txRef,
		"plan", planName,
		"provider", s.provider.Name(),
	)
	return checkout, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, txRef string) (*domain.Payment, error) {
	const op = "payment.verify"

	payment, err := s.queries.GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "payment", txRef)
		}
		return nil, domain.Internal(err, op, "failed to fetch payment")
	}
	if payment.Status != domain.PaymentStatusPending {
		// Already settled by a webhook or an earlier verify call.
		return payment, nil
	}

	verification, err := s.provider.VerifyPayment(ctx, txRef)
	if err != nil {
		return nil, domain.Internal(err, op, "provider verification failed")
	}

	switch verification.Status {
	case billing.VerificationSucceeded:
		if verification.Amount < payment.Amount {
			// Underpaid transactions never activate a plan.
			s.logger.Warn("payment amount mismatch",
				"tx_ref", txRef,
				"expected", payment.Amount,
				"got", verification.Amount,
			)
			if err := s.settle(ctx, payment, false); err != nil {
				return nil, domain.Internal(err, op, "failed to settle payment")
			}
		} else if err := s.settle(ctx, payment, true); err != nil {
			return nil, domain.Internal(err, op, "failed to settle payment")
		}
	case billing.VerificationFailed:
		if err := s.settle(ctx, payment, false); err != nil {
			return nil, domain.Internal(err, op, "failed to settle payment")
		}
	default:
		// Still pending at the provider; leave our row alone.
	}

	return s.queries.GetPaymentByTxRef(ctx, txRef)
}

func (s *paymentService) HandleWebhook(ctx context.Context, txRef string, succeeded bool) error {
	const op = "payment.webhook"

	payment, err := s.queries.GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "payment", txRef)
		}
		return domain.Internal(err, op, "failed to fetch payment")
	}

	if err := s.settle(ctx, payment, succeeded); err != nil {
		return domain.Internal(err, op, "failed to settle payment")
	}
	return nil
}

func (s *paymentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	const op = "payment.list"

	payments, err := s.queries.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}
	return payments, nil
}

// =============================================================================
// Settlement
// =============================================================================

// settle transitions a pending payment to its final status and, on success,
// activates the purchased plan. The status update is guarded so a payment
// settles at most once; replayed webhooks and double verifies are no-ops.
// Status flip and plan activation share one transaction: if activation
// fails, the payment stays pending and the provider's retry settles it.
func (s *paymentService) settle(ctx context.Context, payment *domain.Payment, succeeded bool) error {
	status := domain.PaymentStatusFailed
	if succeeded {
		status = domain.PaymentStatusSucceeded
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	updated, err := qtx.MarkPaymentStatus(ctx, payment.TxRef, status)
	if err != nil {
		return fmt.Errorf("mark payment status: %w", err)
	}
	if !updated {
		// Someone else settled it first.
		return nil
	}

	expiresAt := time.Now().Add(domain.PlanDuration)
	if succeeded {
		if err := qtx.UpdateUserPlan(ctx, payment.UserID, payment.PlanName, expiresAt); err != nil {
			return fmt.Errorf("activate plan: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}

	metrics.PaymentsTotal.WithLabelValues(payment.Provider, string(status)).Inc()

	if !succeeded {
		s.logger.Info("payment failed", "tx_ref", payment.TxRef, "user_id", payment.UserID)
		return nil
	}

	s.logActivity(ctx, payment.UserID, domain.ActionPaymentCompleted, map[string]any{
		"tx_ref": payment.TxRef,
		"plan":   payment.PlanName,
	})

	s.logger.Info("payment settled",
		"tx_ref", payment.TxRef,
		"user_id", payment.UserID,
		"plan", payment.PlanName,
		"expires_at", expiresAt,
	)
	return nil
}

func (s *paymentService) logActivity(ctx context.Context, userID uuid.UUID, action string, details map[string]any) {
	data, err := json.Marshal(details)
	if err != nil {
		data = nil
	}
	if err := s.queries.InsertActivityLog(ctx, userID, action, data); err != nil {
		s.logger.Warn("activity log failed", "action", action, "error", err)
	}
}
