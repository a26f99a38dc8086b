package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
	pkgerrors "github.com/rgalindo-dev/storely-backend/pkg/errors"
)

const (
	reasonPaymentCaptured = "payment captured"
	reasonPaymentFailed   = "payment failed"
)

// capture carries the normalized fields of a successful payment event,
// whichever envelope object it arrived in.
type capture struct {
	orderID           uuid.UUID
	gatewayPaymentID  string
	checkoutSessionID string
	amountCents       int64
	currency          string
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	var session checkoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	orderID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		s.logg.Info(ctx, "checkout event carries no order id, ignoring")
		return &Outcome{Ignored: true}, nil
	}
	return s.applyCapture(ctx, event, capture{
		orderID:           orderID,
		gatewayPaymentID:  session.PaymentIntent,
		checkoutSessionID: session.ID,
		amountCents:       session.AmountTotal,
		currency:          session.Currency,
	})
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	var intent paymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	orderID, ok := orderIDFromMetadata(intent.Metadata)
	if !ok {
		s.logg.Info(ctx, "payment event carries no order id, ignoring")
		return &Outcome{Ignored: true}, nil
	}
	return s.applyCapture(ctx, event, capture{
		orderID:          orderID,
		gatewayPaymentID: intent.ID,
		amountCents:      intent.capturedAmount(),
		currency:         intent.Currency,
	})
}

// applyCapture runs the paid-side reconciliation: flip the order to paid
// with first-writer-wins identity fields, append the payment row, make
// sure a fulfillment exists, and send the confirmation on first sighting
// of the gateway payment id only.
func (s *Service) applyCapture(ctx context.Context, event *GatewayEvent, c capture) (*Outcome, error) {
	ctx = s.logg.WithOrderID(ctx, c.orderID.String())

	order, err := s.orders.FindByID(ctx, c.orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		// Malformed or test traffic; acknowledging stops redelivery.
		s.logg.Info(ctx, "capture event references unknown order, ignoring")
		return &Outcome{Ignored: true}, nil
	}

	paidAt := event.CreatedAt(nowUTC())
	priorStatus := order.Status
	if err := s.orders.CapturePayment(ctx, order.ID, c.checkoutSessionID, c.gatewayPaymentID, paidAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if priorStatus == enums.OrderStatusPending || priorStatus == enums.OrderStatusPaymentFailed {
		err := s.orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			OldStatus: priorStatus,
			NewStatus: enums.OrderStatusPaid,
			Reason:    reasonPaymentCaptured,
			EventID:   event.ID,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		order.Status = enums.OrderStatusPaid
	}

	currency := c.currency
	if currency == "" {
		currency = order.Currency
	}
	amount := c.amountCents
	if amount == 0 {
		amount = order.TotalNetCents
	}
	result, err := s.payments.InsertPayment(ctx, &models.Payment{
		OrderID:          &order.ID,
		AmountCents:      amount,
		Currency:         currency,
		GatewayPaymentID: c.gatewayPaymentID,
		Provider:         "card",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
	}

	origin, _ := json.Marshal(map[string]string{
		"event_id":            event.ID,
		"checkout_session_id": c.checkoutSessionID,
		"gateway_payment_id":  c.gatewayPaymentID,
	})
	if _, err := s.fulfillments.EnsureExists(ctx, order.ID, origin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure fulfillment")
	}

	if result.Duplicate {
		s.logg.Info(ctx, fmt.Sprintf("payment %s already recorded, skipping confirmation", c.gatewayPaymentID))
		return &Outcome{Duplicate: true}, nil
	}
	if s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, order, event.ID, paidAt)
	}
	return &Outcome{}, nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	var intent paymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	orderID, ok := orderIDFromMetadata(intent.Metadata)
	if !ok {
		s.logg.Info(ctx, "failure event carries no order id, ignoring")
		return &Outcome{Ignored: true}, nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		s.logg.Info(ctx, "failure event references unknown order, ignoring")
		return &Outcome{Ignored: true}, nil
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusPaid {
		// Orders already in refund accounting keep their state.
		s.logg.Info(ctx, fmt.Sprintf("order is %s, failure event ignored", order.Status))
		return &Outcome{Ignored: true}, nil
	}

	if err := s.orders.MarkPaymentFailed(ctx, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	err = s.orders.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:   order.ID,
		OldStatus: order.Status,
		NewStatus: enums.OrderStatusPaymentFailed,
		Reason:    reasonPaymentFailed,
		EventID:   event.ID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return &Outcome{}, nil
}
