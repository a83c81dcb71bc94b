package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
	"github.com/garyjia/trash-inspection/internal/infrastructure/persistence/txn"
)

// EventQueueRepository is a SQL-table queue implementing port.EventQueue.
//
// Claiming is two-step so it works on both sqlite and MySQL: candidate ids
// are selected first, then each row is taken with a conditional UPDATE that
// only succeeds while the row is unleased.
type EventQueueRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewEventQueueRepository creates a new event queue repository
func NewEventQueueRepository(db *sql.DB, logger *zap.Logger) *EventQueueRepository {
	return &EventQueueRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const queueColumns = `id, event_id, event_type, case_id, correlation_id, attempts,
	available_at, locked_by, locked_until, last_error, status, created_at, updated_at`

// Enqueue stores an event for delivery. Re-enqueueing the same event id is a no-op.
func (r *EventQueueRepository) Enqueue(ctx context.Context, evt *event.Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	exec := txn.ExecutorFor(ctx, r.db)

	var existing int64
	err := exec.QueryRowContext(ctx, `SELECT id FROM event_queue WHERE event_id = ?`, evt.ID).Scan(&existing)
	if err == nil {
		r.logger.Debug("Event already queued", zap.String("event_id", evt.ID))
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check queued event: %w", err)
	}

	now := r.now()
	query := `
		INSERT INTO event_queue (
			event_id, event_type, case_id, correlation_id, attempts,
			available_at, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)
	`

	_, err = exec.ExecContext(ctx, query,
		evt.ID,
		string(evt.Type),
		evt.CaseID,
		evt.CorrelationID,
		now,
		entity.QueueStatusPending,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to enqueue event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	return nil
}

// Claim leases up to limit available messages to worker. Each claim counts as a delivery attempt.
func (r *EventQueueRepository) Claim(ctx context.Context, worker string, limit int, lease time.Duration) ([]*entity.QueuedEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := r.now()
	ids, err := r.candidates(ctx, now, limit)
	if err != nil {
		return nil, err
	}

	exec := txn.ExecutorFor(ctx, r.db)
	lockedUntil := now.Add(lease)

	claimed := make([]*entity.QueuedEvent, 0, len(ids))
	for _, id := range ids {
		result, err := exec.ExecContext(ctx, `
			UPDATE event_queue
			SET locked_by = ?, locked_until = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = ? AND status = ? AND (locked_until IS NULL OR locked_until < ?)
		`, worker, lockedUntil, now, id, entity.QueueStatusPending, now)
		if err != nil {
			return claimed, fmt.Errorf("failed to claim event %d: %w", id, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim event %d: %w", id, err)
		}
		if n == 0 {
			// taken by another worker between select and update
			continue
		}

		msg, err := r.get(ctx, id)
		if err != nil {
			return claimed, err
		}
		claimed = append(claimed, msg)
	}

	return claimed, nil
}

func (r *EventQueueRepository) candidates(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	rows, err := txn.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id FROM event_queue
		WHERE status = ? AND available_at <= ? AND (locked_until IS NULL OR locked_until < ?)
		ORDER BY available_at, id
		LIMIT ?
	`, entity.QueueStatusPending, now, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select queued events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queued event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ack marks a message as processed and releases its lease
func (r *EventQueueRepository) Ack(ctx context.Context, id int64) error {
	return r.finish(ctx, id, entity.QueueStatusDone, nil)
}

// Retry releases a message for redelivery after delay
func (r *EventQueueRepository) Retry(ctx context.Context, id int64, delay time.Duration, lastErr string) error {
	now := r.now()
	_, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE event_queue
		SET status = ?, available_at = ?, locked_by = NULL, locked_until = NULL,
			last_error = ?, updated_at = ?
		WHERE id = ?
	`, entity.QueueStatusPending, now.Add(delay), lastErr, now, id)
	if err != nil {
		r.logger.Error("Failed to reschedule event", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to reschedule event %d: %w", id, err)
	}
	return nil
}

// DeadLetter parks a message with its last error
func (r *EventQueueRepository) DeadLetter(ctx context.Context, id int64, lastErr string) error {
	return r.finish(ctx, id, entity.QueueStatusDead, &lastErr)
}

func (r *EventQueueRepository) finish(ctx context.Context, id int64, status string, lastErr *string) error {
	query := `
		UPDATE event_queue
		SET status = ?, locked_by = NULL, locked_until = NULL, updated_at = ?
		WHERE id = ?
	`
	args := []interface{}{status, r.now(), id}
	if lastErr != nil {
		query = `
			UPDATE event_queue
			SET status = ?, locked_by = NULL, locked_until = NULL, updated_at = ?, last_error = ?
			WHERE id = ?
		`
		args = []interface{}{status, r.now(), *lastErr, id}
	}

	if _, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to update queued event", zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to mark event %d %s: %w", id, status, err)
	}
	return nil
}

// Stats counts messages by status; leased pending messages count as in flight
func (r *EventQueueRepository) Stats(ctx context.Context) (*entity.QueueStats, error) {
	now := r.now()
	rows, err := txn.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT status,
			CASE WHEN locked_until IS NOT NULL AND locked_until >= ? THEN 1 ELSE 0 END AS leased,
			COUNT(*)
		FROM event_queue
		GROUP BY status, leased
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}
	defer rows.Close()

	stats := &entity.QueueStats{}
	for rows.Next() {
		var (
			status string
			leased int
			count  int64
		)
		if err := rows.Scan(&status, &leased, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch {
		case status == entity.QueueStatusPending && leased == 1:
			stats.InFlight += count
		case status == entity.QueueStatusPending:
			stats.Pending += count
		case status == entity.QueueStatusDone:
			stats.Done += count
		case status == entity.QueueStatusDead:
			stats.Dead += count
		}
	}

	return stats, rows.Err()
}

// Get returns one queued message by id
func (r *EventQueueRepository) Get(ctx context.Context, id int64) (*entity.QueuedEvent, bool, error) {
	msg, err := r.get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

func (r *EventQueueRepository) get(ctx context.Context, id int64) (*entity.QueuedEvent, error) {
	var (
		msg         entity.QueuedEvent
		lockedBy    sql.NullString
		lockedUntil sql.NullTime
		lastErr     sql.NullString
	)

	err := txn.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM event_queue WHERE id = ?`, id,
	).Scan(
		&msg.ID,
		&msg.EventID,
		&msg.EventType,
		&msg.CaseID,
		&msg.CorrelationID,
		&msg.Attempts,
		&msg.AvailableAt,
		&lockedBy,
		&lockedUntil,
		&lastErr,
		&msg.Status,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queued event %d: %w", id, err)
	}

	msg.LockedBy = lockedBy.String
	msg.LastError = lastErr.String
	if lockedUntil.Valid {
		msg.LockedUntil = &lockedUntil.Time
	}

	return &msg, nil
}

var _ port.EventQueue = (*EventQueueRepository)(nil)
