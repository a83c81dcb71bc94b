package entity

// CompletedForm is a completed eForm case as returned by the form system.
type CompletedForm struct {
	CaseID    string         `json:"case_id"`
	Label     string         `json:"label,omitempty"`
	Elements  []ReplyElement `json:"elements"`
	DoneAt    string         `json:"done_at,omitempty"`
	WorkerUID string         `json:"worker_uid,omitempty"`
}

// ReplyElement is a top-level element of a completed form
type ReplyElement struct {
	ID     int64        `json:"id"`
	Label  string       `json:"label"`
	Groups []ReplyGroup `json:"groups"`
}

// ReplyGroup holds data items and may nest further groups
type ReplyGroup struct {
	Label     string       `json:"label"`
	DataItems []FormField  `json:"data_items"`
	Groups    []ReplyGroup `json:"groups,omitempty"`
}

// FormField is a single answered field
type FormField struct {
	ID        int64        `json:"id"`
	Label     string       `json:"label"`
	FieldType string       `json:"field_type,omitempty"`
	Values    []FieldValue `json:"values"`
}

// FieldValue is one answer value of a field
type FieldValue struct {
	Value string `json:"value"`
}

// FirstValue returns the first answer value, or "" when the field is unanswered
func (f *FormField) FirstValue() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0].Value
}

// ApprovalResult is the structured answer read from a completed form
type ApprovalResult struct {
	IsApproved    bool   `json:"is_approved"`
	ApprovedValue string `json:"approved_value"`
	Comment       string `json:"comment"`
}
