package port

import (
	"context"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

// FormClient defines operations against the external eForm system
type FormClient interface {
	// ReadCase fetches a completed case. found is false when the form system does not know it.
	ReadCase(ctx context.Context, sdkCaseID string) (form *entity.CompletedForm, found bool, err error)

	// DeleteCase removes a case from the form system
	DeleteCase(ctx context.Context, sdkCaseID string) error
}

// CallbackRequest is the approval result sent to the back-office endpoint
type CallbackRequest struct {
	CaseID     string
	IsApproved bool
	Comment    string
}

// BackOfficeClient delivers approval results to the back-office endpoint
type BackOfficeClient interface {
	// SendResult performs the synchronous callback and returns the confirmation text
	SendResult(ctx context.Context, req CallbackRequest) (string, error)
}
