package enums

import "fmt"

// EventProcessingStatus tracks a webhook event through the idempotency ledger.
type EventProcessingStatus string

const (
	EventProcessingStatusPending   EventProcessingStatus = "pending"
	EventProcessingStatusCompleted EventProcessingStatus = "completed"
	EventProcessingStatusFailed    EventProcessingStatus = "failed"
)

var validEventProcessingStatuses = []EventProcessingStatus{
	EventProcessingStatusPending,
	EventProcessingStatusCompleted,
	EventProcessingStatusFailed,
}

// String implements fmt.Stringer.
func (e EventProcessingStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventProcessingStatus.
func (e EventProcessingStatus) IsValid() bool {
	for _, candidate := range validEventProcessingStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventProcessingStatus converts raw input into an EventProcessingStatus.
func ParseEventProcessingStatus(value string) (EventProcessingStatus, error) {
	for _, candidate := range validEventProcessingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event processing status %q", value)
}
