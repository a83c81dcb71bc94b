package workflow

import (
	"context"
	"fmt"
	"sort"
)

// StateMachineBuilder collects a transition table and stamps out machines from it
type StateMachineBuilder interface {
	// Configure returns the row of the table for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration declares the triggers a state accepts.
// Each trigger maps to exactly one target.
type StateConfiguration interface {
	// Permit allows a trigger to move the machine to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitReentry allows a trigger to leave the machine in the configured state
	PermitReentry(trigger Trigger) StateConfiguration
}

type transitionRow struct {
	from    State
	targets map[Trigger]State
}

type transitionTable map[State]*transitionRow

type tableBuilder struct {
	table transitionTable
}

type stateMachine struct {
	current State
	table   transitionTable
}

// NewBuilder creates an empty state machine builder
func NewBuilder() StateMachineBuilder {
	return &tableBuilder{table: make(transitionTable)}
}

func (b *tableBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	row, ok := b.table[state]
	if !ok {
		row = &transitionRow{from: state, targets: make(map[Trigger]State)}
		b.table[state] = row
	}
	return row
}

// Build snapshots the table so later Configure calls do not leak into live machines
func (b *tableBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	snapshot := make(transitionTable, len(b.table))
	for state, row := range b.table {
		targets := make(map[Trigger]State, len(row.targets))
		for trigger, to := range row.targets {
			targets[trigger] = to
		}
		snapshot[state] = &transitionRow{from: state, targets: targets}
	}

	return &stateMachine{current: initialState, table: snapshot}
}

// Permit panics when the trigger is already bound to a different target
func (r *transitionRow) Permit(trigger Trigger, toState State) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if existing, ok := r.targets[trigger]; ok && existing != toState {
		panic(fmt.Sprintf("trigger %s from %s already targets %s", trigger, r.from, existing))
	}

	r.targets[trigger] = toState
	return r
}

func (r *transitionRow) PermitReentry(trigger Trigger) StateConfiguration {
	return r.Permit(trigger, r.from)
}

func (m *stateMachine) target(trigger Trigger) (State, bool) {
	row, ok := m.table[m.current]
	if !ok {
		return "", false
	}
	to, ok := row.targets[trigger]
	return to, ok
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.target(trigger)
	return ok
}

func (m *stateMachine) Fire(_ context.Context, trigger Trigger) error {
	to, ok := m.target(trigger)
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

// PermittedTriggers returns the accepted triggers in a stable order
func (m *stateMachine) PermittedTriggers() []Trigger {
	row, ok := m.table[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(row.targets))
	for trigger := range row.targets {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
