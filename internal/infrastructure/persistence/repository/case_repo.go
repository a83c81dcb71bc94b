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

// CaseRepository implements port.CaseRepository
type CaseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *sql.DB, logger *zap.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

const caseColumns = `id, sdk_case_id, status, trash_inspection_id, workflow_state, version, created_at, updated_at`

// Create inserts a case. An empty workflow state defaults to created.
func (r *CaseRepository) Create(ctx context.Context, c *entity.TrashInspectionCase) error {
	now := time.Now().UTC()
	if c.WorkflowState == "" {
		c.WorkflowState = entity.WorkflowStateCreated
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Version = 1

	query := `
		INSERT INTO trash_inspection_cases (
			sdk_case_id, status, trash_inspection_id, workflow_state,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		c.SdkCaseID,
		c.Status,
		c.TrashInspectionID,
		c.WorkflowState,
		c.Version,
		c.CreatedAt.UTC(),
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create case", zap.String("sdk_case_id", c.SdkCaseID), zap.Error(err))
		return fmt.Errorf("failed to create case: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	return nil
}

// GetBySdkCaseID retrieves a case by its external id
func (r *CaseRepository) GetBySdkCaseID(ctx context.Context, sdkCaseID string) (*entity.TrashInspectionCase, bool, error) {
	query := `SELECT ` + caseColumns + ` FROM trash_inspection_cases WHERE sdk_case_id = ?`

	c, err := scanCase(txn.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, sdkCaseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get case", zap.String("sdk_case_id", sdkCaseID), zap.Error(err))
		return nil, false, fmt.Errorf("failed to get case: %w", err)
	}

	return c, true, nil
}

// ListByInspectionID returns every case of an inspection ordered by id
func (r *CaseRepository) ListByInspectionID(ctx context.Context, inspectionID int64) ([]*entity.TrashInspectionCase, error) {
	query := `SELECT ` + caseColumns + ` FROM trash_inspection_cases WHERE trash_inspection_id = ? ORDER BY id`

	rows, err := txn.ExecutorFor(ctx, r.db).QueryContext(ctx, query, inspectionID)
	if err != nil {
		r.logger.Error("Failed to list cases", zap.Int64("inspection_id", inspectionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*entity.TrashInspectionCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// Update writes the status and bumps the version. The statement never
// lowers the stored status, so a stale record cannot undo a concurrent advance.
func (r *CaseRepository) Update(ctx context.Context, c *entity.TrashInspectionCase) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	query := `
		UPDATE trash_inspection_cases
		SET status = CASE WHEN status < ? THEN ? ELSE status END,
			version = version + 1, updated_at = ?
		WHERE id = ?
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		c.Status,
		c.Status,
		c.UpdatedAt.UTC(),
		c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update case", zap.String("sdk_case_id", c.SdkCaseID), zap.Error(err))
		return fmt.Errorf("failed to update case: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update case: %s not found", c.SdkCaseID)
	}

	c.Version++
	return nil
}

// SetWorkflowState writes the workflow state alone; the status column is untouched
func (r *CaseRepository) SetWorkflowState(ctx context.Context, c *entity.TrashInspectionCase, state string) error {
	now := time.Now()

	query := `
		UPDATE trash_inspection_cases
		SET workflow_state = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`

	result, err := txn.ExecutorFor(ctx, r.db).ExecContext(ctx, query, state, now.UTC(), c.ID)
	if err != nil {
		r.logger.Error("Failed to set case workflow state",
			zap.String("sdk_case_id", c.SdkCaseID),
			zap.String("workflow_state", state),
			zap.Error(err))
		return fmt.Errorf("failed to set case workflow state: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to set case workflow state: %s not found", c.SdkCaseID)
	}

	c.WorkflowState = state
	c.UpdatedAt = now
	c.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*entity.TrashInspectionCase, error) {
	var c entity.TrashInspectionCase
	err := row.Scan(
		&c.ID,
		&c.SdkCaseID,
		&c.Status,
		&c.TrashInspectionID,
		&c.WorkflowState,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ port.CaseRepository = (*CaseRepository)(nil)
