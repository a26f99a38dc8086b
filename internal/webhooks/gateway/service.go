package gateway

import (
	"context"
	"time"

	"github.com/rgalindo-dev/storely-backend/internal/fulfillments"
	"github.com/rgalindo-dev/storely-backend/internal/orders"
	"github.com/rgalindo-dev/storely-backend/internal/payments"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	pkgerrors "github.com/rgalindo-dev/storely-backend/pkg/errors"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
)

// Notifier sends the customer-facing order confirmation. Implementations
// are best-effort; the reconciler never learns about send failures.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order, eventID string, paidAt time.Time)
}

// Outcome summarizes what dispatching one event actually did, feeding the
// duplicate/ignored flags of the webhook receipt.
type Outcome struct {
	Duplicate bool
	Ignored   bool
}

type ServiceParams struct {
	Logger       *logger.Logger
	Orders       orders.Repository
	Payments     payments.Repository
	Fulfillments fulfillments.Repository
	Notifier     Notifier
}

// Service routes verified gateway events to their reconciliation handlers.
// Every write it triggers is independently duplicate-tolerant, so there is
// no transaction spanning a whole event; a crash mid-event leaves the
// ledger row failed and the gateway's redelivery finds each completed
// write already in place.
type Service struct {
	logg         *logger.Logger
	orders       orders.Repository
	payments     payments.Repository
	fulfillments fulfillments.Repository
	notifier     Notifier
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo is required")
	}
	if params.Fulfillments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillments repo is required")
	}
	return &Service{
		logg:         params.Logger,
		orders:       params.Orders,
		payments:     params.Payments,
		fulfillments: params.Fulfillments,
		notifier:     params.Notifier,
	}, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// HandleEvent dispatches one first-sighting event. Unknown types are
// acknowledged and ignored so the gateway stops redelivering them.
// Dispatch is synchronous and single-pass; handlers never re-enter it.
func (s *Service) HandleEvent(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	if event == nil || event.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway event is required")
	}
	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case EventCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventPaymentIntentSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	case EventPaymentIntentFailed:
		return s.handlePaymentFailed(ctx, event)
	case EventChargeRefunded, EventRefundUpdated, EventChargeRefundUpdated:
		return s.handleRefund(ctx, event)
	default:
		s.logg.Info(ctx, "unrecognized gateway event type, ignoring")
		return &Outcome{Ignored: true}, nil
	}
}
