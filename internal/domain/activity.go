package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an append-only audit entry. Details carries free-form JSON
// (resource IDs, payment references, USSD selections) and may be empty.
type ActivityLog struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Action    string
	Details   json.RawMessage
	CreatedAt time.Time
}

// Well-known activity actions. Handlers may log others; these are the ones
// the platform itself emits.
const (
	ActionResourceUploaded = "resource_uploaded"
	ActionResourceRated    = "resource_rated"
	ActionPaymentInitiated = "payment_initiated"
	ActionPaymentCompleted = "payment_completed"
	ActionUSSDBrowse       = "ussd_browse"
	ActionSMSLinkSent      = "sms_link_sent"
)
