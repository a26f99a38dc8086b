package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rgalindo-dev/storely-backend/pkg/db"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
)

// Repository is the idempotency ledger over webhook_events. The unique
// index on event_id is the only cross-request synchronization primitive:
// Record relies on it instead of a check-then-insert, so two concurrent
// deliveries of the same event id cannot both proceed.
type Repository interface {
	Record(ctx context.Context, event *models.WebhookEvent) (duplicate bool, err error)
	Finalize(ctx context.Context, eventID string, status enums.EventProcessingStatus, errMsg string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// Record inserts the event with processing_status=pending. A unique-index
// rejection on event_id means the event was already sighted; the caller
// must short-circuit without reprocessing.
func (r *repository) Record(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ProcessingStatus == "" {
		event.ProcessingStatus = enums.EventProcessingStatusPending
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Finalize stamps the terminal processing status and processed_at. Ledger
// rows are an audit trail; they are updated once and never deleted.
func (r *repository) Finalize(ctx context.Context, eventID string, status enums.EventProcessingStatus, errMsg string) error {
	updates := map[string]any{
		"processing_status": status,
		"processed_at":      time.Now().UTC(),
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}
