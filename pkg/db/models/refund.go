package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Refund is an append-only record of money returned by the gateway, keyed
// by the gateway's refund identifier. The same refund object can arrive
// under two different webhook event ids; the unique index collapses both
// deliveries into one row.
type Refund struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID       *uuid.UUID      `gorm:"column:payment_id;type:uuid;index"`
	AmountCents     int64           `gorm:"column:amount_cents;not null"`
	Currency        string          `gorm:"column:currency;not null;default:'usd'"`
	GatewayRefundID string          `gorm:"column:gateway_refund_id;not null;uniqueIndex:ux_refunds_gateway_refund_id"`
	Reason          *string         `gorm:"column:reason"`
	Metadata        json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
