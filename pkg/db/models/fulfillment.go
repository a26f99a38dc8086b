package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// Fulfillment is the warehouse record created once an order is paid.
// At most one row exists per order; the unique index on order_id settles
// races between concurrent webhook deliveries.
type Fulfillment struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_fulfillments_order_id"`
	Status    enums.FulfillmentStatus `gorm:"column:status;type:fulfillment_status;not null;default:'pending'"`
	Origin    json.RawMessage         `gorm:"column:origin;type:jsonb"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
