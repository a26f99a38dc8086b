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
	reasonPartialRefund = "partial refund processed"
	reasonFullRefund    = "full refund processed"
)

// handleRefund processes the refund objects carried by one event. A
// charge.refunded event embeds a list; the refund.updated spellings carry
// exactly one. Each object is deduplicated and accounted independently,
// in array order, because the gateway can deliver the same refund object
// under several distinct event ids.
func (s *Service) handleRefund(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	refunds, err := refundObjectsFor(event)
	if err != nil {
		return nil, err
	}
	if len(refunds) == 0 {
		s.logg.Info(ctx, "refund event carries no refund objects, ignoring")
		return &Outcome{Ignored: true}, nil
	}

	var applied, duplicates int
	for _, refund := range refunds {
		res, err := s.applyRefund(ctx, event, refund)
		if err != nil {
			return nil, err
		}
		switch res {
		case refundApplied:
			applied++
		case refundDuplicate:
			duplicates++
		}
	}

	outcome := &Outcome{}
	if applied == 0 {
		if duplicates > 0 {
			outcome.Duplicate = true
		} else {
			outcome.Ignored = true
		}
	}
	return outcome, nil
}

func refundObjectsFor(event *GatewayEvent) ([]refundObject, error) {
	switch event.Type {
	case EventChargeRefunded:
		var ch charge
		if err := json.Unmarshal(event.Data.Object, &ch); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		refunds := ch.Refunds.Data
		for i := range refunds {
			// Embedded refunds inherit the charge context when bare.
			if refunds[i].PaymentIntent == "" {
				refunds[i].PaymentIntent = ch.PaymentIntent
			}
			if refunds[i].Currency == "" {
				refunds[i].Currency = ch.Currency
			}
			if len(refunds[i].Metadata) == 0 {
				refunds[i].Metadata = ch.Metadata
			}
		}
		return refunds, nil
	default:
		var refund refundObject
		if err := json.Unmarshal(event.Data.Object, &refund); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode refund")
		}
		if refund.ID == "" {
			return nil, nil
		}
		return []refundObject{refund}, nil
	}
}

type refundResult int

const (
	refundSkipped refundResult = iota
	refundApplied
	refundDuplicate
)

// applyRefund records one refund object and runs the amount accounting at
// most once per gateway refund id. The refund row itself is always worth
// keeping for audit even when the order cannot be resolved or is not in a
// refundable state; accounting is gated separately.
func (s *Service) applyRefund(ctx context.Context, event *GatewayEvent, refund refundObject) (refundResult, error) {
	payment, orderID, err := s.resolvePayment(ctx, refund)
	if err != nil {
		return refundSkipped, err
	}

	row := &models.Refund{
		AmountCents:     refund.Amount,
		Currency:        refund.Currency,
		GatewayRefundID: refund.ID,
	}
	if payment != nil {
		row.PaymentID = &payment.ID
		if row.Currency == "" {
			row.Currency = payment.Currency
		}
	}
	if refund.Reason != "" {
		reason := refund.Reason
		row.Reason = &reason
	}

	res, err := s.payments.InsertRefund(ctx, row)
	if err != nil {
		return refundSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert refund")
	}
	if res.Duplicate {
		// Same refund object arrived under a different event id earlier;
		// the money is already accounted for.
		s.logg.Info(ctx, fmt.Sprintf("refund %s already recorded, skipping accounting", refund.ID))
		return refundDuplicate, nil
	}

	order, err := s.resolveOrder(ctx, orderID)
	if err != nil {
		return refundSkipped, err
	}
	if order == nil {
		s.logg.Info(ctx, fmt.Sprintf("refund %s cannot be tied to an order, recorded without accounting", refund.ID))
		return refundSkipped, nil
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if !order.Status.IsRefundable() {
		// Replay or malformed test data; a pending order has no money to
		// give back.
		s.logg.Info(ctx, fmt.Sprintf("order is %s, refund accounting skipped", order.Status))
		return refundSkipped, nil
	}

	newRefunded := order.RefundedCents + refund.Amount
	newStatus := enums.OrderStatusPartiallyRefunded
	if newRefunded >= order.TotalNetCents {
		newStatus = enums.OrderStatusRefunded
	}
	if newRefunded > order.TotalNetCents {
		// Gateway figures are recorded verbatim, never clamped.
		s.logg.Warn(ctx, fmt.Sprintf(
			"refunded amount %d exceeds order total %d after refund %s",
			newRefunded, order.TotalNetCents, refund.ID,
		))
	}

	if err := s.orders.ApplyRefund(ctx, order.ID, refund.Amount, newStatus); err != nil {
		return refundSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply refund accounting")
	}
	if newStatus != order.Status {
		err := s.orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			OldStatus: order.Status,
			NewStatus: newStatus,
			Reason:    refundReason(newStatus),
			EventID:   event.ID,
		})
		if err != nil {
			return refundSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
	}
	return refundApplied, nil
}

// resolvePayment finds the payment a refund belongs to, preferring the
// gateway payment intent id and falling back to the most recent payment
// on the order when metadata names the order directly. With multi-payment
// orders that fallback can attribute the refund to the wrong payment; a
// known approximation. It also reports the order id the refund resolved
// to, uuid.Nil when neither path produced one.
func (s *Service) resolvePayment(ctx context.Context, refund refundObject) (*models.Payment, uuid.UUID, error) {
	metadataOrderID, hasMetadataOrder := orderIDFromMetadata(refund.Metadata)

	var payment *models.Payment
	if refund.PaymentIntent != "" {
		found, err := s.payments.FindPaymentByGatewayID(ctx, refund.PaymentIntent)
		if err != nil {
			return nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		payment = found
	}
	if payment == nil && hasMetadataOrder {
		found, err := s.payments.FindLatestPaymentByOrder(ctx, metadataOrderID)
		if err != nil {
			return nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest order payment")
		}
		payment = found
	}

	switch {
	case hasMetadataOrder:
		return payment, metadataOrderID, nil
	case payment != nil && payment.OrderID != nil:
		return payment, *payment.OrderID, nil
	default:
		return payment, uuid.Nil, nil
	}
}

func (s *Service) resolveOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, nil
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func refundReason(status enums.OrderStatus) string {
	if status == enums.OrderStatusRefunded {
		return reasonFullRefund
	}
	return reasonPartialRefund
}
