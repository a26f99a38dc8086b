package fulfillments

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// Repository manages the one-per-order fulfillment records. EnsureExists
// is idempotent so every redelivered payment event can call it safely.
type Repository interface {
	EnsureExists(ctx context.Context, orderID uuid.UUID, origin json.RawMessage) (*models.Fulfillment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillments repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// EnsureExists creates the fulfillment for the order if none exists yet.
// Losing the insert race to a concurrent delivery is success: the unique
// index on order_id rejects the second insert and the existing row is
// returned instead.
func (r *repository) EnsureExists(ctx context.Context, orderID uuid.UUID, origin json.RawMessage) (*models.Fulfillment, error) {
	existing, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	record := &models.Fulfillment{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  enums.FulfillmentStatusPending,
		Origin:  origin,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return r.FindByOrderID(ctx, orderID)
		}
		return nil, err
	}
	return record, nil
}

// FindByOrderID returns (nil, nil) when the order has no fulfillment.
func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error) {
	var record models.Fulfillment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
