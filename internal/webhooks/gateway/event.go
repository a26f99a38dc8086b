package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Recognized gateway event types. The three refund spellings all describe
// the same underlying refund objects and share one handler.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
	EventChargeRefunded           = "charge.refunded"
	EventRefundUpdated            = "refund.updated"
	EventChargeRefundUpdated      = "charge.refund.updated"
)

// GatewayEvent is the outer webhook envelope. Data.Object stays raw until
// the type-specific handler decodes it.
type GatewayEvent struct {
	ID      string           `json:"id" validate:"required"`
	Type    string           `json:"type" validate:"required"`
	Created int64            `json:"created"`
	Data    GatewayEventData `json:"data"`
}

type GatewayEventData struct {
	Object json.RawMessage `json:"object"`
}

// CreatedAt falls back to now for events without a created timestamp.
func (e *GatewayEvent) CreatedAt(now time.Time) time.Time {
	if e.Created > 0 {
		return time.Unix(e.Created, 0).UTC()
	}
	return now.UTC()
}

// checkoutSession is the object carried by checkout.session.completed.
type checkoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// paymentIntent is the object carried by payment_intent.succeeded and
// payment_intent.payment_failed.
type paymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

func (p *paymentIntent) capturedAmount() int64 {
	if p.AmountReceived > 0 {
		return p.AmountReceived
	}
	return p.Amount
}

// refundObject is one refund as the gateway reports it, either alone
// (refund.updated spellings) or embedded in a charge (charge.refunded).
type refundObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Reason        string            `json:"reason"`
	Metadata      map[string]string `json:"metadata"`
}

// charge is the object carried by charge.refunded; it embeds the full
// refund list.
type charge struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	Refunds       struct {
		Data []refundObject `json:"data"`
	} `json:"refunds"`
}

// orderIDFromMetadata pulls the storefront order id the checkout flow
// stamps into gateway metadata. Events without one are order-less.
func orderIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata["order_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
