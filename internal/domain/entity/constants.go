package entity

// Workflow state constants for cases and inspections
const (
	WorkflowStateCreated   = "created"
	WorkflowStateRetracted = "retracted"
)

// Default labels of the fields read from a completed inspection form
const (
	DefaultApprovalLabel = "Angiv om læs er Godkendt"
	DefaultCommentLabel  = "Kommentar"

	// ApprovedFieldValue is the only approval value that counts as approved
	ApprovedFieldValue = "1"
)

// Event queue message status constants
const (
	QueueStatusPending = "pending"
	QueueStatusDone    = "done"
	QueueStatusDead    = "dead"
)
