package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of observed order
// status transitions. No row is written when a handler leaves the status
// unchanged.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	OldStatus enums.OrderStatus `gorm:"column:old_status;type:order_status;not null"`
	NewStatus enums.OrderStatus `gorm:"column:new_status;type:order_status;not null"`
	Reason    string            `gorm:"column:reason;not null"`
	EventID   string            `gorm:"column:event_id;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the singular table name from the migrations; GORM would
// otherwise pluralize to order_status_histories.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
