package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
)

// InsertResult reports what an append-only insert actually did. Duplicate
// means the gateway id was already on file, which is how redeliveries of
// the same money movement under a fresh event id are detected.
type InsertResult struct {
	Inserted  bool
	Duplicate bool
}

// Repository stores payments and refunds keyed by the gateway's own ids.
// Both tables are append-only; the unique indexes on the gateway ids are
// the dedup arbiter across distinct webhook event ids.
type Repository interface {
	InsertPayment(ctx context.Context, payment *models.Payment) (InsertResult, error)
	InsertRefund(ctx context.Context, refund *models.Refund) (InsertResult, error)
	FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error)
	FindRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*models.Refund, error)
	FindLatestPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// InsertPayment appends a payment row. A unique-index rejection on
// gateway_payment_id is reported as Duplicate, not an error; the existing
// row already accounts for the money.
func (r *repository) InsertPayment(ctx context.Context, payment *models.Payment) (InsertResult, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return InsertResult{Duplicate: true}, nil
		}
		return InsertResult{}, err
	}
	return InsertResult{Inserted: true}, nil
}

// InsertRefund appends a refund row with the same duplicate semantics as
// InsertPayment, keyed on gateway_refund_id.
func (r *repository) InsertRefund(ctx context.Context, refund *models.Refund) (InsertResult, error) {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return InsertResult{Duplicate: true}, nil
		}
		return InsertResult{}, err
	}
	return InsertResult{Inserted: true}, nil
}

// FindPaymentByGatewayID returns (nil, nil) when no payment carries the id.
func (r *repository) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindRefundByGatewayID returns (nil, nil) when no refund carries the id.
func (r *repository) FindRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("gateway_refund_id = ?", gatewayRefundID).
		First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// FindLatestPaymentByOrder returns the most recent payment on the order,
// or (nil, nil) when none exists. Used to attach refunds whose payload
// does not name the payment directly.
func (r *repository) FindLatestPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
