package entity

import "time"

// TrashInspectionCase is one eForm case deployed for a trash inspection.
// SdkCaseID and TrashInspectionID never change after creation.
type TrashInspectionCase struct {
	ID                int64     `json:"id"`
	SdkCaseID         string    `json:"sdk_case_id"`
	Status            int       `json:"status"`
	TrashInspectionID int64     `json:"trash_inspection_id"`
	WorkflowState     string    `json:"workflow_state"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsRetracted reports whether the case was retracted by a sibling completion
func (c *TrashInspectionCase) IsRetracted() bool {
	return c.WorkflowState == WorkflowStateRetracted
}
