package event

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event is a lifecycle event for a single external case.
// CaseID is the eForm SDK case id carried by the message.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	CaseID        int64     `json:"case_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`

	// Attempt is the 1-based delivery attempt, set by the transport.
	Attempt int `json:"attempt,omitempty"`
}

// NewEvent creates a new lifecycle event with auto-generated ID and timestamp
func NewEvent(eventType Type, caseID int64) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		CaseID:        caseID,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
		Attempt:       1,
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, caseID int64, correlationID string) *Event {
	evt := NewEvent(eventType, caseID)
	evt.CorrelationID = correlationID
	return evt
}

// SdkCaseID returns the case id in the form stored on case rows
func (e *Event) SdkCaseID() string {
	return strconv.FormatInt(e.CaseID, 10)
}

// WithAttempt returns a copy of the event stamped with a delivery attempt
func (e *Event) WithAttempt(attempt int) *Event {
	cp := *e
	cp.Attempt = attempt
	return &cp
}

// ErrInvalidEvent is returned by Validate for events that cannot be routed
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks that the event can be routed
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event cannot be nil", ErrInvalidEvent)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.Type)
	}
	if e.CaseID <= 0 {
		return fmt.Errorf("%w: event %s has case id %d", ErrInvalidEvent, e.Type, e.CaseID)
	}
	return nil
}
