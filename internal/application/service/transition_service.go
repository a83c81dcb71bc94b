package service

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RecordTransition describes what happened to one record
type RecordTransition struct {
	From    workflow.State `json:"from"`
	To      workflow.State `json:"to"`
	Status  int            `json:"status"`
	Written bool           `json:"written"`
}

// TransitionOutcome is the result of applying one trigger to a case and its inspection
type TransitionOutcome struct {
	Trigger    workflow.Trigger  `json:"trigger"`
	Case       RecordTransition  `json:"case"`
	Inspection *RecordTransition `json:"inspection,omitempty"`
}

// TransitionService applies lifecycle triggers to persisted records.
// Records are mutated in place and written through the repositories bound to ctx.
type TransitionService interface {
	Apply(ctx context.Context, trigger workflow.Trigger, c *entity.TrashInspectionCase, inspection *entity.TrashInspection) (*TransitionOutcome, error)
}

type transitionServiceImpl struct {
	cases       port.CaseRepository
	inspections port.InspectionRepository
	logger      Logger
	now         func() time.Time
}

// NewTransitionService creates a new TransitionService
func NewTransitionService(cases port.CaseRepository, inspections port.InspectionRepository, logger Logger) TransitionService {
	return &transitionServiceImpl{
		cases:       cases,
		inspections: inspections,
		logger:      logger,
		now:         time.Now,
	}
}

// Apply fires the trigger on the case and, for RETRIEVE and COMPLETE, on the
// inspection. The two guards are evaluated independently and a nil
// inspection only skips the inspection half.
func (s *transitionServiceImpl) Apply(ctx context.Context, trigger workflow.Trigger, c *entity.TrashInspectionCase, inspection *entity.TrashInspection) (*TransitionOutcome, error) {
	outcome := &TransitionOutcome{Trigger: trigger}

	caseStep, err := s.step(ctx, trigger, c.Status, c.IsRetracted())
	if err != nil {
		return nil, err
	}
	outcome.Case = caseStep

	if caseStep.Written {
		if caseStep.To == workflow.StateRetracted {
			// the status column is left to whichever writer owns it
			if err := s.cases.SetWorkflowState(ctx, c, entity.WorkflowStateRetracted); err != nil {
				return nil, persistenceError("retract case", err)
			}
		} else {
			c.Status = caseStep.Status
			c.UpdatedAt = s.now()
			if err := s.cases.Update(ctx, c); err != nil {
				return nil, persistenceError("update case", err)
			}
		}
		s.logger.Info("Case transitioned",
			"sdk_case_id", c.SdkCaseID,
			"trigger", trigger,
			"from", caseStep.From,
			"to", caseStep.To,
			"status", c.Status,
		)
	}

	if inspection == nil || !affectsInspection(trigger) {
		return outcome, nil
	}

	inspStep, err := s.step(ctx, trigger, inspection.Status, inspection.WorkflowState == entity.WorkflowStateRetracted)
	if err != nil {
		return nil, err
	}
	outcome.Inspection = &inspStep

	if inspStep.Written {
		inspection.Status = inspStep.Status
		inspection.UpdatedAt = s.now()
		if err := s.inspections.Update(ctx, inspection); err != nil {
			return nil, persistenceError("update inspection", err)
		}
		s.logger.Info("Inspection transitioned",
			"inspection_id", inspection.ID,
			"trigger", trigger,
			"from", inspStep.From,
			"to", inspStep.To,
			"status", inspection.Status,
		)
	}

	return outcome, nil
}

// step evaluates a trigger against one record. A rejected transition is a
// stale event and reports Written=false.
func (s *transitionServiceImpl) step(ctx context.Context, trigger workflow.Trigger, status int, retracted bool) (RecordTransition, error) {
	machine := workflow.NewCaseLifecycle(status, retracted)
	from := machine.State()

	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return RecordTransition{From: from, To: from, Status: status}, nil
		}
		return RecordTransition{}, err
	}

	to := machine.State()
	if to == workflow.StateRetracted {
		return RecordTransition{From: from, To: to, Status: status, Written: true}, nil
	}

	newStatus, _ := to.Status()
	// COMPLETE always writes, even when the record is already completed
	written := newStatus > status || trigger == workflow.TriggerComplete
	if !written {
		newStatus = status
	}

	return RecordTransition{From: from, To: to, Status: newStatus, Written: written}, nil
}

func affectsInspection(trigger workflow.Trigger) bool {
	return trigger == workflow.TriggerRetrieve || trigger == workflow.TriggerComplete
}
