package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Payment is an append-only record of money captured by the gateway.
// GatewayPaymentID carries the gateway's own identifier and is unique;
// a second insert for the same id is the duplicate-delivery signal.
type Payment struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          *uuid.UUID      `gorm:"column:order_id;type:uuid;index"`
	AmountCents      int64           `gorm:"column:amount_cents;not null"`
	Currency         string          `gorm:"column:currency;not null;default:'usd'"`
	GatewayPaymentID string          `gorm:"column:gateway_payment_id;not null;uniqueIndex:ux_payments_gateway_payment_id"`
	Provider         string          `gorm:"column:provider;not null;default:'card'"`
	Metadata         json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
