package workflow

// State represents a lifecycle state of a trash inspection case
type State string

const (
	StateUnprocessed State = "UNPROCESSED"
	StateParsed      State = "PARSED"
	StateRetrieved   State = "RETRIEVED"
	StateCompleted   State = "COMPLETED"
	StateRetracted   State = "RETRACTED"
)

// Numeric status codes persisted on case and inspection rows.
const (
	StatusParsed    = 70
	StatusRetrieved = 77
	StatusCompleted = 100
)

var validStates = map[State]bool{
	StateUnprocessed: true,
	StateParsed:      true,
	StateRetrieved:   true,
	StateCompleted:   true,
	StateRetracted:   true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateRetracted: true,
}

// StateFromStatus maps a persisted status code onto a lifecycle state.
// A retracted workflow overrides the numeric status.
func StateFromStatus(status int, retracted bool) State {
	switch {
	case retracted:
		return StateRetracted
	case status >= StatusCompleted:
		return StateCompleted
	case status >= StatusRetrieved:
		return StateRetrieved
	case status >= StatusParsed:
		return StateParsed
	default:
		return StateUnprocessed
	}
}

// Status returns the status code written when a record enters the state.
// Unprocessed and Retracted do not carry a code of their own.
func (s State) Status() (int, bool) {
	switch s {
	case StateParsed:
		return StatusParsed, true
	case StateRetrieved:
		return StatusRetrieved, true
	case StateCompleted:
		return StatusCompleted, true
	default:
		return 0, false
	}
}

// IsTerminal returns true if the state allows no forward progress
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
