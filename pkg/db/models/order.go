package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// Order is a storefront order. The reconciler is the only writer of the
// lifecycle fields below; order placement happens elsewhere.
//
// CheckoutSessionID, PaymentIntentID and PaidAt are set-once: the first
// capture event wins and later events never overwrite them.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Status            enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalNetCents     int64             `gorm:"column:total_net_cents;not null"`
	Currency          string            `gorm:"column:currency;not null;default:'usd'"`
	RefundedCents     int64             `gorm:"column:refunded_cents;not null;default:0"`
	RefundCount       int               `gorm:"column:refund_count;not null;default:0"`
	CheckoutSessionID *string           `gorm:"column:checkout_session_id"`
	PaymentIntentID   *string           `gorm:"column:payment_intent_id"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
