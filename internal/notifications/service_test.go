package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
)

type stubResult struct {
	err error
}

func (r stubResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type stubPublisher struct {
	published []*gcppubsub.Message
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.published = append(p.published, msg)
	return stubResult{err: p.err}
}

type stubOnce struct {
	acquired bool
	setErr   error
	deleted  []string
}

func (s *stubOnce) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	return s.acquired, nil
}

func (s *stubOnce) OnceKey(scope, id string) string {
	return "storely:once:" + scope + ":" + id
}

func (s *stubOnce) Del(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func testService(t *testing.T, pub *stubPublisher, once *stubOnce) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "test"})})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	if pub != nil {
		svc.publisher = pub
	}
	if once != nil {
		svc.once = once
	}
	return svc
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusPaid,
		TotalNetCents: 2500,
		Currency:      "jpy",
	}
}

func TestOrderConfirmedPublishesMessage(t *testing.T) {
	pub := &stubPublisher{}
	once := &stubOnce{acquired: true}
	svc := testService(t, pub, once)
	order := paidOrder()
	paidAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	svc.OrderConfirmed(context.Background(), order, "evt_1", paidAt)

	if len(pub.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.published))
	}
	var msg ConfirmationMessage
	if err := json.Unmarshal(pub.published[0].Data, &msg); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.OrderID != order.ID.String() || msg.AmountCents != 2500 || msg.Currency != "jpy" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !msg.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid_at %v", msg.PaidAt)
	}
}

func TestOrderConfirmedSkipsWhenGuardAlreadyHeld(t *testing.T) {
	pub := &stubPublisher{}
	svc := testService(t, pub, &stubOnce{acquired: false})

	svc.OrderConfirmed(context.Background(), paidOrder(), "evt_1", time.Now())

	if len(pub.published) != 0 {
		t.Fatalf("expected no publish when guard held, got %d", len(pub.published))
	}
}

func TestOrderConfirmedPublishesWhenGuardUnavailable(t *testing.T) {
	pub := &stubPublisher{}
	svc := testService(t, pub, &stubOnce{setErr: errors.New("redis down")})

	svc.OrderConfirmed(context.Background(), paidOrder(), "evt_1", time.Now())

	if len(pub.published) != 1 {
		t.Fatalf("redis outage must not block confirmation, got %d publishes", len(pub.published))
	}
}

func TestOrderConfirmedReleasesGuardOnPublishFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("deadline exceeded")}
	once := &stubOnce{acquired: true}
	svc := testService(t, pub, once)

	// Must not panic or propagate; failure is logged and the guard freed.
	svc.OrderConfirmed(context.Background(), paidOrder(), "evt_1", time.Now())

	if len(once.deleted) != 1 {
		t.Fatalf("expected once key released, got %v", once.deleted)
	}
}

func TestOrderConfirmedNoopWithoutPublisher(t *testing.T) {
	svc := testService(t, nil, nil)
	svc.OrderConfirmed(context.Background(), paidOrder(), "evt_1", time.Now())
}
