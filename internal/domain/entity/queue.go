package entity

import (
	"time"

	"github.com/garyjia/trash-inspection/internal/domain/event"
)

// QueuedEvent is a row of the event queue table
type QueuedEvent struct {
	ID            int64      `json:"id"`
	EventID       string     `json:"event_id"`
	EventType     string     `json:"event_type"`
	CaseID        int64      `json:"case_id"`
	CorrelationID string     `json:"correlation_id"`
	Attempts      int        `json:"attempts"`
	AvailableAt   time.Time  `json:"available_at"`
	LockedBy      string     `json:"locked_by,omitempty"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// QueueStats summarises the queue by message status
type QueueStats struct {
	Pending  int64 `json:"pending"`
	InFlight int64 `json:"in_flight"`
	Done     int64 `json:"done"`
	Dead     int64 `json:"dead"`
}

// Event rebuilds the domain event carried by the message
func (q *QueuedEvent) Event() *event.Event {
	return &event.Event{
		ID:            q.EventID,
		Type:          event.Type(q.EventType),
		CaseID:        q.CaseID,
		Timestamp:     q.CreatedAt,
		CorrelationID: q.CorrelationID,
		Attempt:       q.Attempts,
	}
}
