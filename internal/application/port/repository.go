package port

import (
	"context"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

// CaseRepository defines persistence operations for TrashInspectionCase.
// Lookups report absence through found instead of a nil record.
type CaseRepository interface {
	Create(ctx context.Context, c *entity.TrashInspectionCase) error
	GetBySdkCaseID(ctx context.Context, sdkCaseID string) (c *entity.TrashInspectionCase, found bool, err error)
	ListByInspectionID(ctx context.Context, inspectionID int64) ([]*entity.TrashInspectionCase, error)

	// Update writes the status without ever lowering the stored value and bumps the version
	Update(ctx context.Context, c *entity.TrashInspectionCase) error

	// SetWorkflowState writes only the workflow state of the case
	SetWorkflowState(ctx context.Context, c *entity.TrashInspectionCase, state string) error
}

// InspectionRepository defines persistence operations for TrashInspection
type InspectionRepository interface {
	Create(ctx context.Context, inspection *entity.TrashInspection) error
	GetByID(ctx context.Context, id int64) (inspection *entity.TrashInspection, found bool, err error)

	// Update writes the status without ever lowering it. The approval columns
	// are written only when InspectionDone is set; the callback outcome is
	// left to UpdateCallbackResult.
	Update(ctx context.Context, inspection *entity.TrashInspection) error

	// UpdateCallbackResult stores the outcome of the latest back-office callback
	UpdateCallbackResult(ctx context.Context, id int64, successMessage, errorMessage *string) error
}

// TransactionManager handles database transactions.
// The transaction travels in the context passed to fn and is released when fn returns.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
