package entity

import "time"

// TrashInspection aggregates the outcome of all cases deployed for one load.
type TrashInspection struct {
	ID     int64 `json:"id"`
	Status int   `json:"status"`

	// Written once, when a case completes
	IsApproved     bool   `json:"is_approved"`
	ApprovedValue  string `json:"approved_value"`
	Comment        string `json:"comment"`
	InspectionDone bool   `json:"inspection_done"`

	// Outcome of the last back-office callback
	SuccessMessage *string `json:"success_message,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`

	WorkflowState string    `json:"workflow_state"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CallbackResult returns the text stored by the latest callback attempt.
// ok is false when no callback has been recorded.
func (i *TrashInspection) CallbackResult() (result string, ok bool) {
	switch {
	case i.ErrorMessage != nil:
		return *i.ErrorMessage, true
	case i.SuccessMessage != nil:
		return *i.SuccessMessage, true
	default:
		return "", false
	}
}

// RecordCallbackSuccess stores a confirmation and clears a previous error
func (i *TrashInspection) RecordCallbackSuccess(message string) {
	i.SuccessMessage = &message
	i.ErrorMessage = nil
}

// RecordCallbackError stores a failure and clears a previous confirmation
func (i *TrashInspection) RecordCallbackError(message string) {
	i.ErrorMessage = &message
	i.SuccessMessage = nil
}

// ApplyApproval copies an extracted approval onto the inspection and marks it done
func (i *TrashInspection) ApplyApproval(result *ApprovalResult) {
	i.IsApproved = result.IsApproved
	i.ApprovedValue = result.ApprovedValue
	i.Comment = result.Comment
	i.InspectionDone = true
}
