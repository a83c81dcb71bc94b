package service

import (
	"context"
	"fmt"

	"github.com/garyjia/trash-inspection/internal/application/dispatcher"
	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
)

// EventHandlers consumes the three eForm lifecycle events.
// Handlers share no in-memory state; they coordinate through persisted status.
type EventHandlers struct {
	cases         port.CaseRepository
	inspections   port.InspectionRepository
	txManager     port.TransactionManager
	forms         port.FormClient
	locker        port.CaseLocker
	transitions   TransitionService
	extractor     FormExtractor
	retraction    RetractionService
	notifications NotificationService
	logger        Logger
}

// HandlerDeps groups the collaborators of EventHandlers
type HandlerDeps struct {
	Cases         port.CaseRepository
	Inspections   port.InspectionRepository
	TxManager     port.TransactionManager
	Forms         port.FormClient
	Locker        port.CaseLocker
	Transitions   TransitionService
	Extractor     FormExtractor
	Retraction    RetractionService
	Notifications NotificationService
	Logger        Logger
}

// NewEventHandlers creates the lifecycle event handlers
func NewEventHandlers(deps HandlerDeps) *EventHandlers {
	return &EventHandlers{
		cases:         deps.Cases,
		inspections:   deps.Inspections,
		txManager:     deps.TxManager,
		forms:         deps.Forms,
		locker:        deps.Locker,
		transitions:   deps.Transitions,
		extractor:     deps.Extractor,
		retraction:    deps.Retraction,
		notifications: deps.Notifications,
		logger:        deps.Logger,
	}
}

// Register binds one handler per lifecycle event type
func (h *EventHandlers) Register(d dispatcher.Dispatcher) error {
	routes := []struct {
		eventType event.Type
		name      string
		handler   dispatcher.Handler
	}{
		{event.TypeEformRetrieved, "eform-retrieved", h.HandleRetrieved},
		{event.TypeEformParsedByServer, "eform-parsed-by-server", h.HandleParsedByServer},
		{event.TypeEformCompleted, "eform-completed", h.HandleCompleted},
	}

	for _, r := range routes {
		if err := d.Register(r.eventType, r.name, r.handler); err != nil {
			return fmt.Errorf("register %s: %w", r.eventType, err)
		}
	}
	return nil
}

// HandleRetrieved moves the case and its inspection to 77 when they are below it
func (h *EventHandlers) HandleRetrieved(ctx context.Context, evt *event.Event) error {
	err := h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, ok, err := h.loadCase(txCtx, evt)
		if err != nil || !ok {
			return err
		}

		inspection, found, err := h.inspections.GetByID(txCtx, c.TrashInspectionID)
		if err != nil {
			return persistenceError("load inspection", err)
		}
		if !found {
			h.logger.Warn("Inspection not found, updating case only",
				"sdk_case_id", c.SdkCaseID,
				"inspection_id", c.TrashInspectionID,
			)
			inspection = nil
		}

		_, err = h.transitions.Apply(txCtx, workflow.TriggerRetrieve, c, inspection)
		return err
	})
	return classify("retrieved transaction", err)
}

// HandleParsedByServer moves the case to 70 when it is below it
func (h *EventHandlers) HandleParsedByServer(ctx context.Context, evt *event.Event) error {
	err := h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, ok, err := h.loadCase(txCtx, evt)
		if err != nil || !ok {
			return err
		}

		_, err = h.transitions.Apply(txCtx, workflow.TriggerParse, c, nil)
		return err
	})
	return classify("parsed transaction", err)
}

// HandleCompleted runs the completion pipeline under the case lease:
// read the form, extract the answer, write status 100 with the approval,
// retract siblings and notify the back office.
func (h *EventHandlers) HandleCompleted(ctx context.Context, evt *event.Event) error {
	sdkCaseID := evt.SdkCaseID()

	if !h.locker.TryLock(sdkCaseID) {
		return fmt.Errorf("%w: %s", ErrCaseBusy, sdkCaseID)
	}
	defer h.locker.Unlock(sdkCaseID)

	c, ok, err := h.loadCase(ctx, evt)
	if err != nil || !ok {
		return err
	}

	form, found, err := h.forms.ReadCase(ctx, sdkCaseID)
	if err != nil {
		return fmt.Errorf("%w: case %s: %v", ErrFormRead, sdkCaseID, err)
	}
	if !found {
		h.logger.Warn("Completed case unknown to form system, ignoring", "sdk_case_id", sdkCaseID)
		return nil
	}

	result, err := h.extractor.Extract(form)
	if err != nil {
		h.logger.Error("Completed form is missing a required field",
			"sdk_case_id", sdkCaseID,
			"error", err,
		)
		return err
	}

	var inspection *entity.TrashInspection
	err = h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		insp, found, err := h.inspections.GetByID(txCtx, c.TrashInspectionID)
		if err != nil {
			return persistenceError("load inspection", err)
		}
		if found {
			insp.ApplyApproval(result)
			inspection = insp
		}

		_, err = h.transitions.Apply(txCtx, workflow.TriggerComplete, c, inspection)
		return err
	})
	if err != nil {
		return classify("completed transaction", err)
	}

	h.logger.Info("Case completed",
		"sdk_case_id", sdkCaseID,
		"inspection_id", c.TrashInspectionID,
		"is_approved", result.IsApproved,
	)

	report := h.retraction.RetractSiblings(ctx, c.TrashInspectionID, sdkCaseID)
	for _, f := range report.Failures {
		h.logger.Warn("Sibling retraction failed", "sdk_case_id", f.SdkCaseID, "error", f.Err)
	}

	if inspection == nil {
		h.logger.Warn("Inspection not found, skipping back office notification",
			"sdk_case_id", sdkCaseID,
			"inspection_id", c.TrashInspectionID,
		)
		return nil
	}

	h.notifications.Notify(ctx, inspection, sdkCaseID, result)
	return nil
}

// loadCase returns ok=false for unknown and retracted cases, which are no-ops
func (h *EventHandlers) loadCase(ctx context.Context, evt *event.Event) (*entity.TrashInspectionCase, bool, error) {
	c, found, err := h.cases.GetBySdkCaseID(ctx, evt.SdkCaseID())
	if err != nil {
		return nil, false, persistenceError("load case", err)
	}
	if !found {
		h.logger.Info("Case not found, ignoring event",
			"event_type", evt.Type,
			"sdk_case_id", evt.SdkCaseID(),
		)
		return nil, false, nil
	}
	if c.IsRetracted() {
		h.logger.Warn("Case is retracted, ignoring event",
			"event_type", evt.Type,
			"sdk_case_id", c.SdkCaseID,
		)
		return nil, false, nil
	}
	return c, true, nil
}
