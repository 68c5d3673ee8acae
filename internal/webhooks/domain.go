// Package webhooks relays lifecycle events to the configured automation
// endpoint. Delivery is best effort: enqueued after commit, sent once, and
// dropped with a log line on failure.
package webhooks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventProjectCreated       EventType = "project.created"
	EventProjectStatusChanged EventType = "project.status_changed"
	EventDailyReportConfirmed EventType = "daily_report.confirmed"
	EventDailyReportRevised   EventType = "daily_report.revised"
	EventOffsetConfirmed      EventType = "offset.confirmed"
	EventInvoiceIssued        EventType = "invoice.issued"
)

// Event is the wire payload POSTed to the webhook URL.
type Event struct {
	ID         string         `json:"id"`
	EventType  EventType      `json:"event_type"`
	RecordType string         `json:"record_type"`
	RecordID   int64          `json:"record_id"`
	Data       map[string]any `json:"data,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent stamps id and timestamp on a payload.
func NewEvent(eventType EventType, recordType string, recordID int64, data, changes map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		EventType:  eventType,
		RecordType: recordType,
		RecordID:   recordID,
		Data:       data,
		Changes:    changes,
		Timestamp:  time.Now().UTC(),
	}
}

// Publisher enqueues events for asynchronous delivery. Implementations must
// never block the calling request on network I/O.
type Publisher interface {
	PublishEvent(ctx context.Context, evt Event) error
}

// NopPublisher discards events. Used when no webhook URL is configured and
// in tests.
type NopPublisher struct{}

// PublishEvent implements Publisher.
func (NopPublisher) PublishEvent(context.Context, Event) error { return nil }
