package notifications

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	pkgerrors "github.com/rgalindo-dev/storely-backend/pkg/errors"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
	"github.com/rgalindo-dev/storely-backend/pkg/redis"
)

const (
	confirmationScope = "order-confirmation"
	eventTypeAttr     = "eventType"
	confirmationType  = "order.payment_confirmed"
	publishTimeout    = 10 * time.Second
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

// ConfirmationMessage is the payload published when an order is first
// confirmed as paid.
type ConfirmationMessage struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	EventID     string    `json:"event_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

type ServiceParams struct {
	Logger    *logger.Logger
	Publisher *gcppubsub.Publisher
	Once      redis.OnceStore
}

// Service publishes customer-facing notification events. It is entirely
// best-effort: a publish failure is logged and swallowed so confirmation
// problems can never fail or retry a webhook delivery.
type Service struct {
	logg      *logger.Logger
	publisher publisher
	once      redis.OnceStore
}

// NewService builds the notification service. Publisher and Once may be
// nil when the deployment runs without Pub/Sub or Redis; the service then
// degrades to a no-op (respectively an unguarded publish).
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	svc := &Service{
		logg: params.Logger,
		once: params.Once,
	}
	if params.Publisher != nil {
		svc.publisher = gcpPublisher{inner: params.Publisher}
	}
	return svc, nil
}

// OrderConfirmed publishes the confirmation event for a newly paid order.
// The Redis once-guard keeps redelivered events from prompting a second
// email, but the durable dedup lives in the database; callers must only
// invoke this after the payment insert reported a first sighting.
func (s *Service) OrderConfirmed(ctx context.Context, order *models.Order, eventID string, paidAt time.Time) {
	if s == nil || order == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if s.publisher == nil {
		s.logg.Info(ctx, "notification publisher not configured, skipping confirmation")
		return
	}

	var onceKey string
	if s.once != nil {
		onceKey = s.once.OnceKey(confirmationScope, order.ID.String())
		acquired, err := s.once.SetNX(ctx, onceKey, eventID, 24*time.Hour)
		if err != nil {
			// Redis being down must not block the confirmation.
			s.logg.Warn(ctx, "confirmation once-guard unavailable, publishing anyway")
		} else if !acquired {
			s.logg.Info(ctx, "confirmation already sent for order, skipping")
			return
		}
	}

	body, err := json.Marshal(ConfirmationMessage{
		Type:        confirmationType,
		OrderID:     order.ID.String(),
		EventID:     eventID,
		AmountCents: order.TotalNetCents,
		Currency:    order.Currency,
		PaidAt:      paidAt,
	})
	if err != nil {
		s.logg.Error(ctx, "failed to encode confirmation message", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			eventTypeAttr: confirmationType,
			"orderId":     order.ID.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		// Release the guard so a later redelivery can retry the email.
		if s.once != nil && onceKey != "" {
			if delErr := s.once.Del(context.WithoutCancel(ctx), onceKey); delErr != nil {
				s.logg.Warn(ctx, "failed to release confirmation once-guard")
			}
		}
		s.logg.Error(ctx, "failed to publish order confirmation", err)
		return
	}
	s.logg.Info(ctx, "order confirmation published")
}
