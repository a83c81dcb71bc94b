package service

import "github.com/garyjia/trash-inspection/internal/domain/entity"

// FormExtractor reads the approval answer out of a completed form
type FormExtractor interface {
	Extract(form *entity.CompletedForm) (*entity.ApprovalResult, error)
}

// ExtractorConfig names the form fields to read
type ExtractorConfig struct {
	ApprovalLabel string
	CommentLabel  string
}

type formExtractorImpl struct {
	approvalLabel string
	commentLabel  string
}

// NewFormExtractor creates a FormExtractor. Empty labels fall back to the defaults.
func NewFormExtractor(cfg ExtractorConfig) FormExtractor {
	if cfg.ApprovalLabel == "" {
		cfg.ApprovalLabel = entity.DefaultApprovalLabel
	}
	if cfg.CommentLabel == "" {
		cfg.CommentLabel = entity.DefaultCommentLabel
	}
	return &formExtractorImpl{
		approvalLabel: cfg.ApprovalLabel,
		commentLabel:  cfg.CommentLabel,
	}
}

// Extract returns FieldNotFoundError only when a label is missing from the
// form structure. An unanswered field yields the zero value.
func (e *formExtractorImpl) Extract(form *entity.CompletedForm) (*entity.ApprovalResult, error) {
	approval := findField(form, e.approvalLabel)
	if approval == nil {
		return nil, &FieldNotFoundError{Label: e.approvalLabel}
	}
	comment := findField(form, e.commentLabel)
	if comment == nil {
		return nil, &FieldNotFoundError{Label: e.commentLabel}
	}

	value := approval.FirstValue()
	return &entity.ApprovalResult{
		IsApproved:    value == entity.ApprovedFieldValue,
		ApprovedValue: value,
		Comment:       comment.FirstValue(),
	}, nil
}

// findField returns the first field with the label in document order
func findField(form *entity.CompletedForm, label string) *entity.FormField {
	if form == nil {
		return nil
	}
	for i := range form.Elements {
		if f := findInGroups(form.Elements[i].Groups, label); f != nil {
			return f
		}
	}
	return nil
}

func findInGroups(groups []entity.ReplyGroup, label string) *entity.FormField {
	for i := range groups {
		g := &groups[i]
		for j := range g.DataItems {
			if g.DataItems[j].Label == label {
				return &g.DataItems[j]
			}
		}
		if f := findInGroups(g.Groups, label); f != nil {
			return f
		}
	}
	return nil
}
