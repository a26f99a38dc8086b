package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  gateway_payment_id TEXT NOT NULL,
  provider TEXT NOT NULL DEFAULT 'card',
  metadata TEXT,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_gateway_payment_id ON payments (gateway_payment_id);
CREATE TABLE IF NOT EXISTS refunds (
  id TEXT PRIMARY KEY,
  payment_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  gateway_refund_id TEXT NOT NULL,
  reason TEXT,
  metadata TEXT,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_refunds_gateway_refund_id ON refunds (gateway_refund_id);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return conn
}

func TestInsertPaymentFirstInsertSucceeds(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	orderID := uuid.New()

	res, err := repo.InsertPayment(context.Background(), &models.Payment{
		OrderID:          &orderID,
		AmountCents:      10000,
		Currency:         "usd",
		GatewayPaymentID: "pi_1",
		Provider:         "card",
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !res.Inserted || res.Duplicate {
		t.Fatalf("expected inserted result, got %+v", res)
	}
}

func TestInsertPaymentSameGatewayIDReportsDuplicate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	orderID := uuid.New()

	// Same capture redelivered under a different webhook event id still
	// carries the same gateway payment id.
	if _, err := repo.InsertPayment(ctx, &models.Payment{OrderID: &orderID, AmountCents: 2500, Currency: "jpy", GatewayPaymentID: "pi_dup", Provider: "card"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	res, err := repo.InsertPayment(ctx, &models.Payment{OrderID: &orderID, AmountCents: 2500, Currency: "jpy", GatewayPaymentID: "pi_dup", Provider: "card"})
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if !res.Duplicate || res.Inserted {
		t.Fatalf("expected duplicate result, got %+v", res)
	}

	var count int64
	if err := conn.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one payment row, got %d", count)
	}
}

func TestInsertRefundSameGatewayIDReportsDuplicate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	if _, err := repo.InsertRefund(ctx, &models.Refund{AmountCents: 3000, Currency: "usd", GatewayRefundID: "re_dup"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	res, err := repo.InsertRefund(ctx, &models.Refund{AmountCents: 3000, Currency: "usd", GatewayRefundID: "re_dup"})
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate result, got %+v", res)
	}

	var count int64
	if err := conn.Model(&models.Refund{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one refund row, got %d", count)
	}
}

func TestFindPaymentByGatewayIDUnknownReturnsNil(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	payment, err := repo.FindPaymentByGatewayID(context.Background(), "pi_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment != nil {
		t.Fatalf("expected nil for unknown id, got %+v", payment)
	}
}

func TestFindRefundByGatewayIDRoundTrip(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.InsertRefund(ctx, &models.Refund{AmountCents: 2500, Currency: "usd", GatewayRefundID: "re_find"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	refund, err := repo.FindRefundByGatewayID(ctx, "re_find")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund == nil || refund.AmountCents != 2500 {
		t.Fatalf("expected stored refund, got %+v", refund)
	}

	missing, err := repo.FindRefundByGatewayID(ctx, "re_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestFindLatestPaymentByOrderPicksNewest(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	orderID := uuid.New()

	older := &models.Payment{ID: uuid.New(), OrderID: &orderID, AmountCents: 1000, Currency: "usd", GatewayPaymentID: "pi_old", Provider: "card", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.Payment{ID: uuid.New(), OrderID: &orderID, AmountCents: 2000, Currency: "usd", GatewayPaymentID: "pi_new", Provider: "card", CreatedAt: time.Now()}
	if err := conn.Create(older).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := conn.Create(newer).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	payment, err := repo.FindLatestPaymentByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if payment == nil || payment.GatewayPaymentID != "pi_new" {
		t.Fatalf("expected pi_new, got %+v", payment)
	}
}
