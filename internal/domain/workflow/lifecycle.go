package workflow

import "sync"

var (
	lifecycleOnce    sync.Once
	lifecycleBuilder StateMachineBuilder
)

// NewLifecycle returns a case lifecycle machine positioned at the given state.
//
// Forward progress is Unprocessed -> Parsed -> Retrieved -> Completed, and any
// earlier state may jump ahead. Completed accepts COMPLETE again so a
// redelivered completion is processed in full. Any live state may be
// retracted; Retracted accepts nothing.
func NewLifecycle(initial State) StateMachine {
	lifecycleOnce.Do(func() {
		b := NewBuilder()

		b.Configure(StateUnprocessed).
			Permit(TriggerParse, StateParsed).
			Permit(TriggerRetrieve, StateRetrieved).
			Permit(TriggerComplete, StateCompleted).
			Permit(TriggerRetract, StateRetracted)

		b.Configure(StateParsed).
			Permit(TriggerRetrieve, StateRetrieved).
			Permit(TriggerComplete, StateCompleted).
			Permit(TriggerRetract, StateRetracted)

		b.Configure(StateRetrieved).
			Permit(TriggerComplete, StateCompleted).
			Permit(TriggerRetract, StateRetracted)

		b.Configure(StateCompleted).
			PermitReentry(TriggerComplete).
			Permit(TriggerRetract, StateRetracted)

		lifecycleBuilder = b
	})

	return lifecycleBuilder.Build(initial)
}

// NewCaseLifecycle builds a lifecycle machine from a persisted status and workflow flag
func NewCaseLifecycle(status int, retracted bool) StateMachine {
	return NewLifecycle(StateFromStatus(status, retracted))
}
