package events

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
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
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  event_created DATETIME,
  payload TEXT NOT NULL,
  processing_status TEXT NOT NULL DEFAULT 'pending',
  error TEXT,
  received_at DATETIME,
  processed_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_event_id ON webhook_events (event_id);`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return conn
}

func testEvent(eventID string) *models.WebhookEvent {
	return &models.WebhookEvent{
		EventID:   eventID,
		EventType: "checkout.session.completed",
		Payload:   json.RawMessage(`{"id":"` + eventID + `"}`),
	}
}

func TestRecordFirstSightingInserts(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	duplicate, err := repo.Record(ctx, testEvent("evt_1"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if duplicate {
		t.Fatalf("first sighting must not report duplicate")
	}
}

func TestRecordSecondSightingReportsDuplicate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	if _, err := repo.Record(ctx, testEvent("evt_dup")); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	duplicate, err := repo.Record(ctx, testEvent("evt_dup"))
	if err != nil {
		t.Fatalf("duplicate record must not error: %v", err)
	}
	if !duplicate {
		t.Fatalf("expected duplicate=true on second sighting")
	}

	var count int64
	if err := conn.Model(&models.WebhookEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", count)
	}
}

func TestRecordDefaultsToPending(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	if _, err := repo.Record(context.Background(), testEvent("evt_p")); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	var stored models.WebhookEvent
	if err := conn.Where("event_id = ?", "evt_p").First(&stored).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.ProcessingStatus != enums.EventProcessingStatusPending {
		t.Fatalf("expected pending, got %s", stored.ProcessingStatus)
	}
	if stored.ProcessedAt != nil {
		t.Fatalf("processed_at must be unset before finalize")
	}
}

func TestFinalizeStampsStatusAndError(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	if _, err := repo.Record(ctx, testEvent("evt_f")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := repo.Finalize(ctx, "evt_f", enums.EventProcessingStatusFailed, "order lookup blew up"); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	var stored models.WebhookEvent
	if err := conn.Where("event_id = ?", "evt_f").First(&stored).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.ProcessingStatus != enums.EventProcessingStatusFailed {
		t.Fatalf("expected failed, got %s", stored.ProcessingStatus)
	}
	if stored.Error == nil || *stored.Error != "order lookup blew up" {
		t.Fatalf("expected error message persisted, got %v", stored.Error)
	}
	if stored.ProcessedAt == nil {
		t.Fatalf("expected processed_at stamped")
	}
}
