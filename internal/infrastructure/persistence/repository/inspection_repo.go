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
	"github.com/garyjia/trash-inspection/internal/infrastructure/persistence/txn"
)

// InspectionRepository implements port.InspectionRepository
type InspectionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInspectionRepository creates a new inspection repository
func NewInspectionRepository(db *sql.DB, logger *zap.Logger) *InspectionRepository {
	return &InspectionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an inspection
func (r *InspectionRepository) Create(ctx context.Context, inspection *entity.TrashInspection) error {
	now := time.Now().UTC()
	if inspection.WorkflowState == "" {
		inspection.WorkflowState = entity.WorkflowStateCreated
	}
	if inspection.CreatedAt.IsZero() {
		inspection.CreatedAt = now
	}
	inspection.UpdatedAt = now
	inspection.Version = 1

	query := `
		INSERT INTO trash_inspections (
			status, is_approved, approved_value, comment, inspection_done,
			success_message, error_message, workflow_state, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		inspection.Status,
		inspection.IsApproved,
		inspection.ApprovedValue,
		inspection.Comment,
		inspection.InspectionDone,
		nullString(inspection.SuccessMessage),
		nullString(inspection.ErrorMessage),
		inspection.WorkflowState,
		inspection.Version,
		inspection.CreatedAt.UTC(),
		inspection.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create inspection", zap.Error(err))
		return fmt.Errorf("failed to create inspection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	inspection.ID = id
	return nil
}

// GetByID retrieves an inspection by ID
func (r *InspectionRepository) GetByID(ctx context.Context, id int64) (*entity.TrashInspection, bool, error) {
	query := `
		SELECT id, status, is_approved, approved_value, comment, inspection_done,
			success_message, error_message, workflow_state, version,
			created_at, updated_at
		FROM trash_inspections
		WHERE id = ?
	`

	var inspection entity.TrashInspection
	var successMessage, errorMessage sql.NullString

	err := txn.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&inspection.ID,
		&inspection.Status,
		&inspection.IsApproved,
		&inspection.ApprovedValue,
		&inspection.Comment,
		&inspection.InspectionDone,
		&successMessage,
		&errorMessage,
		&inspection.WorkflowState,
		&inspection.Version,
		&inspection.CreatedAt,
		&inspection.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inspection by ID", zap.Int64("id", id), zap.Error(err))
		return nil, false, fmt.Errorf("failed to get inspection: %w", err)
	}

	if successMessage.Valid {
		inspection.SuccessMessage = &successMessage.String
	}
	if errorMessage.Valid {
		inspection.ErrorMessage = &errorMessage.String
	}

	return &inspection, true, nil
}

// Update writes the status, never lowering it, and bumps the version.
// Approval columns are written only by a record marked InspectionDone, so a
// stale copy loaded for an earlier step cannot clear them. Callback messages
// are written by UpdateCallbackResult.
func (r *InspectionRepository) Update(ctx context.Context, inspection *entity.TrashInspection) error {
	if inspection.UpdatedAt.IsZero() {
		inspection.UpdatedAt = time.Now()
	}

	done := inspection.InspectionDone
	query := `
		UPDATE trash_inspections
		SET status = CASE WHEN status < ? THEN ? ELSE status END,
			is_approved = CASE WHEN ? THEN ? ELSE is_approved END,
			approved_value = CASE WHEN ? THEN ? ELSE approved_value END,
			comment = CASE WHEN ? THEN ? ELSE comment END,
			inspection_done = CASE WHEN ? THEN ? ELSE inspection_done END,
			version = version + 1, updated_at = ?
		WHERE id = ?
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		inspection.Status, inspection.Status,
		done, inspection.IsApproved,
		done, inspection.ApprovedValue,
		done, inspection.Comment,
		done, done,
		inspection.UpdatedAt.UTC(),
		inspection.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update inspection", zap.Int64("id", inspection.ID), zap.Error(err))
		return fmt.Errorf("failed to update inspection: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update inspection: %d not found", inspection.ID)
	}

	inspection.Version++
	return nil
}

// UpdateCallbackResult writes the callback messages and nothing else
func (r *InspectionRepository) UpdateCallbackResult(ctx context.Context, id int64, successMessage, errorMessage *string) error {
	query := `
		UPDATE trash_inspections
		SET success_message = ?, error_message = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		nullString(successMessage),
		nullString(errorMessage),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to store callback result", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to store callback result: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to store callback result: inspection %d not found", id)
	}

	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ port.InspectionRepository = (*InspectionRepository)(nil)
