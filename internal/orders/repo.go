package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// Repository exposes the order mutations owned by the reconciler. Lifecycle
// writes funnel through here; order placement lives elsewhere.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CapturePayment(ctx context.Context, id uuid.UUID, checkoutSessionID, paymentIntentID string, paidAt time.Time) error
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error
	ApplyRefund(ctx context.Context, id uuid.UUID, amountCents int64, newStatus enums.OrderStatus) error
	AppendHistory(ctx context.Context, row *models.OrderStatusHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// FindByID returns (nil, nil) when the order does not exist so callers can
// treat unknown orders as an expected no-op instead of an error.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// CapturePayment records a successful capture in a single atomic UPDATE.
// The identity fields use COALESCE so the first writer wins: a redelivered
// or out-of-order event never overwrites the original session id, intent id
// or capture timestamp. The status flips to paid only from pending or
// payment_failed; refund states never regress on a stale success event.
func (r *repository) CapturePayment(ctx context.Context, id uuid.UUID, checkoutSessionID, paymentIntentID string, paidAt time.Time) error {
	updates := map[string]any{
		"status": gorm.Expr(
			"CASE WHEN status IN (?, ?) THEN ? ELSE status END",
			enums.OrderStatusPending, enums.OrderStatusPaymentFailed, enums.OrderStatusPaid,
		),
		"paid_at":    gorm.Expr("COALESCE(paid_at, ?)", paidAt),
		"updated_at": time.Now().UTC(),
	}
	if checkoutSessionID != "" {
		updates["checkout_session_id"] = gorm.Expr("COALESCE(checkout_session_id, ?)", checkoutSessionID)
	}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = gorm.Expr("COALESCE(payment_intent_id, ?)", paymentIntentID)
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkPaymentFailed flips an order to payment_failed. Only orders that have
// not entered refund accounting are eligible; a later success notification
// can still recover the order to paid.
func (r *repository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN (?, ?)", id, enums.OrderStatusPending, enums.OrderStatusPaid).
		Updates(map[string]any{
			"status":     enums.OrderStatusPaymentFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ApplyRefund adds the accepted refund amount to the running total,
// increments the refund counter and moves the order to newStatus. The
// increment happens in SQL so concurrent refund events cannot lose updates.
func (r *repository) ApplyRefund(ctx context.Context, id uuid.UUID, amountCents int64, newStatus enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"refunded_cents": gorm.Expr("refunded_cents + ?", amountCents),
			"refund_count":   gorm.Expr("refund_count + 1"),
			"status":         newStatus,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// AppendHistory writes one audit row for an observed status transition.
func (r *repository) AppendHistory(ctx context.Context, row *models.OrderStatusHistory) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}
