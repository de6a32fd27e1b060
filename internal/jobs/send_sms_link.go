package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/sms"
	"github.com/translearn/translearn/internal/worker"
)

// SendSMSLinkHandler texts a resource download link to a USSD user.
type SendSMSLinkHandler struct {
	queries *repository.Queries
	sender  sms.Sender
	logger  *slog.Logger
}

// NewSendSMSLinkHandler creates the handler.
func NewSendSMSLinkHandler(queries *repository.Queries, sender sms.Sender, logger *slog.Logger) *SendSMSLinkHandler {
	return &SendSMSLinkHandler{
		queries: queries,
		sender:  sender,
		logger:  logger,
	}
}

// Type returns the job type this handler processes.
func (h *SendSMSLinkHandler) Type() string {
	return worker.JobTypeSendSMSLink
}

// Handle sends the SMS. Gateway failures are retried by the worker; a
// deleted resource or one with no file attached is permanent.
func (h *SendSMSLinkHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SendSMSLinkPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	resource, err := h.queries.GetResource(ctx, p.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("resource %s not found", p.ResourceID))
		}
		return fmt.Errorf("fetch resource: %w", err)
	}
	if resource.FileURL == "" {
		return worker.NewPermanentError(fmt.Errorf("resource %s has no file to link", p.ResourceID))
	}

	message := fmt.Sprintf("TransLearn Resource: %s\n\nAccess: %s", resource.Title, resource.FileURL)
	if teacher, err := h.queries.GetUserByID(ctx, resource.TeacherID); err == nil {
		message = fmt.Sprintf("TransLearn Resource: %s\nShared by %s\n\nAccess: %s",
			resource.Title, teacher.DisplayName(), resource.FileURL)
	}
	if err := h.sender.Send(ctx, p.PhoneNumber, message); err != nil {
		metrics.SMSMessagesSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("send sms: %w", err)
	}
	metrics.SMSMessagesSent.WithLabelValues("sent").Inc()

	if err := h.queries.InsertActivityLog(ctx, resource.TeacherID, domain.ActionSMSLinkSent, nil); err != nil {
		h.logger.Warn("sms activity log failed", "error", err)
	}

	h.logger.Info("sms link sent", "resource_id", resource.ID, "to", p.PhoneNumber)
	return nil
}
