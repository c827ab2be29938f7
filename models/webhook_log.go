package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WebhookLog is an append-only record of one inbound webhook delivery
type WebhookLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Source       string         `gorm:"type:varchar(32);not null;index:idx_webhook_logs_source" json:"source"`
	Event        string         `gorm:"type:varchar(64);not null;index:idx_webhook_logs_event" json:"event"`
	EventType    *string        `gorm:"type:text" json:"event_type,omitempty"`
	HTTPStatus   int            `gorm:"not null" json:"http_status"`
	DepositID    *uuid.UUID     `gorm:"type:uuid;index:idx_webhook_logs_deposit_id" json:"deposit_id,omitempty"`
	CandidateIDs pq.StringArray `gorm:"type:text[]" json:"candidate_ids,omitempty"`
	Payload      *string        `gorm:"type:text" json:"payload,omitempty"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_webhook_logs_created_at" json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}

// Webhook log event names
const (
	WebhookEventMissingSignature = "missing_signature"
	WebhookEventBadSignature     = "bad_signature"
	WebhookEventNoProviderKey    = "no_provider_key"
	WebhookEventMalformed        = "malformed"
	WebhookEventDepositNotFound  = "deposit_not_found"
	WebhookEventAlreadyHandled   = "already_handled"
	WebhookEventIgnored          = "ignored_event"
	WebhookEventPaid             = "paid"
	WebhookEventFailed           = "failed"
	WebhookEventHandlerError     = "handler_error"
	WebhookEventDBPing           = "db_ping"
)

// WebhookLogFilter represents filter criteria for webhook log queries
type WebhookLogFilter struct {
	Source        *string
	Event         *string
	DepositID     *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
