package port

import (
	"context"
	"time"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
)

// EventQueue is the durable transport delivering lifecycle events to workers
type EventQueue interface {
	Enqueue(ctx context.Context, evt *event.Event) error

	// Claim leases up to limit available messages to worker until the lease expires
	Claim(ctx context.Context, worker string, limit int, lease time.Duration) ([]*entity.QueuedEvent, error)

	// Ack marks a message as processed
	Ack(ctx context.Context, id int64) error

	// Retry releases a message for redelivery after delay, recording the failure
	Retry(ctx context.Context, id int64, delay time.Duration, lastErr string) error

	// DeadLetter parks a message that will not be delivered again
	DeadLetter(ctx context.Context, id int64, lastErr string) error

	Stats(ctx context.Context) (*entity.QueueStats, error)
}

// CaseLocker grants a per-case lease so one case is completed by one worker at a time
type CaseLocker interface {
	// TryLock returns false if the lease could not be acquired
	TryLock(sdkCaseID string) bool
	Unlock(sdkCaseID string)
}
