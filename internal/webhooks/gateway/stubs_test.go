package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/internal/payments"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// The stubs mirror the SQL semantics of the real repositories closely
// enough for handler tests: COALESCE-style set-once identity fields,
// guarded status flips, unique-id duplicate reporting.

type stubOrdersRepo struct {
	orders  map[uuid.UUID]*models.Order
	history []models.OrderStatusHistory
}

func newStubOrdersRepo(seed ...*models.Order) *stubOrdersRepo {
	repo := &stubOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *stubOrdersRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func (r *stubOrdersRepo) CapturePayment(_ context.Context, id uuid.UUID, sessionID, intentID string, paidAt time.Time) error {
	order, ok := r.orders[id]
	if !ok {
		return nil
	}
	if order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusPaymentFailed {
		order.Status = enums.OrderStatusPaid
	}
	if order.CheckoutSessionID == nil && sessionID != "" {
		order.CheckoutSessionID = &sessionID
	}
	if order.PaymentIntentID == nil && intentID != "" {
		order.PaymentIntentID = &intentID
	}
	if order.PaidAt == nil {
		order.PaidAt = &paidAt
	}
	return nil
}

func (r *stubOrdersRepo) MarkPaymentFailed(_ context.Context, id uuid.UUID) error {
	order, ok := r.orders[id]
	if !ok {
		return nil
	}
	if order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusPaid {
		order.Status = enums.OrderStatusPaymentFailed
	}
	return nil
}

func (r *stubOrdersRepo) ApplyRefund(_ context.Context, id uuid.UUID, amountCents int64, newStatus enums.OrderStatus) error {
	order, ok := r.orders[id]
	if !ok {
		return nil
	}
	order.RefundedCents += amountCents
	order.RefundCount++
	order.Status = newStatus
	return nil
}

func (r *stubOrdersRepo) AppendHistory(_ context.Context, row *models.OrderStatusHistory) error {
	r.history = append(r.history, *row)
	return nil
}

type stubPaymentsRepo struct {
	payments map[string]*models.Payment
	refunds  map[string]*models.Refund
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{
		payments: map[string]*models.Payment{},
		refunds:  map[string]*models.Refund{},
	}
}

func (r *stubPaymentsRepo) InsertPayment(_ context.Context, payment *models.Payment) (payments.InsertResult, error) {
	if _, ok := r.payments[payment.GatewayPaymentID]; ok {
		return payments.InsertResult{Duplicate: true}, nil
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	clone := *payment
	r.payments[payment.GatewayPaymentID] = &clone
	return payments.InsertResult{Inserted: true}, nil
}

func (r *stubPaymentsRepo) InsertRefund(_ context.Context, refund *models.Refund) (payments.InsertResult, error) {
	if _, ok := r.refunds[refund.GatewayRefundID]; ok {
		return payments.InsertResult{Duplicate: true}, nil
	}
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	clone := *refund
	r.refunds[refund.GatewayRefundID] = &clone
	return payments.InsertResult{Inserted: true}, nil
}

func (r *stubPaymentsRepo) FindPaymentByGatewayID(_ context.Context, gatewayPaymentID string) (*models.Payment, error) {
	payment, ok := r.payments[gatewayPaymentID]
	if !ok {
		return nil, nil
	}
	clone := *payment
	return &clone, nil
}

func (r *stubPaymentsRepo) FindRefundByGatewayID(_ context.Context, gatewayRefundID string) (*models.Refund, error) {
	refund, ok := r.refunds[gatewayRefundID]
	if !ok {
		return nil, nil
	}
	clone := *refund
	return &clone, nil
}

func (r *stubPaymentsRepo) FindLatestPaymentByOrder(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var latest *models.Payment
	for _, payment := range r.payments {
		if payment.OrderID == nil || *payment.OrderID != orderID {
			continue
		}
		if latest == nil || payment.CreatedAt.After(latest.CreatedAt) {
			latest = payment
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

type stubFulfillmentsRepo struct {
	records map[uuid.UUID]*models.Fulfillment
}

func newStubFulfillmentsRepo() *stubFulfillmentsRepo {
	return &stubFulfillmentsRepo{records: map[uuid.UUID]*models.Fulfillment{}}
}

func (r *stubFulfillmentsRepo) EnsureExists(_ context.Context, orderID uuid.UUID, origin json.RawMessage) (*models.Fulfillment, error) {
	if existing, ok := r.records[orderID]; ok {
		return existing, nil
	}
	record := &models.Fulfillment{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  enums.FulfillmentStatusPending,
		Origin:  origin,
	}
	r.records[orderID] = record
	return record, nil
}

func (r *stubFulfillmentsRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Fulfillment, error) {
	record, ok := r.records[orderID]
	if !ok {
		return nil, nil
	}
	return record, nil
}

type stubNotifier struct {
	confirmed []string
}

func (n *stubNotifier) OrderConfirmed(_ context.Context, order *models.Order, eventID string, _ time.Time) {
	n.confirmed = append(n.confirmed, order.ID.String()+"/"+eventID)
}
