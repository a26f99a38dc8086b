package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// WebhookEvent is the idempotency ledger: one row per gateway event id,
// holding the raw payload for replay and audit. The unique index on
// event_id is the arbiter between concurrent deliveries of the same
// event. Rows are never deleted.
type WebhookEvent struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID          string                      `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_events_event_id"`
	EventType        string                      `gorm:"column:event_type;not null;index"`
	EventCreated     *time.Time                  `gorm:"column:event_created"`
	Payload          json.RawMessage             `gorm:"column:payload;type:jsonb;not null"`
	ProcessingStatus enums.EventProcessingStatus `gorm:"column:processing_status;type:event_processing_status;not null;default:'pending'"`
	Error            *string                     `gorm:"column:error"`
	ReceivedAt       time.Time                   `gorm:"column:received_at;autoCreateTime"`
	ProcessedAt      *time.Time                  `gorm:"column:processed_at"`
}
