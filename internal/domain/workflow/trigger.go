package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerParse    Trigger = "PARSE"
	TriggerRetrieve Trigger = "RETRIEVE"
	TriggerComplete Trigger = "COMPLETE"
	TriggerRetract  Trigger = "RETRACT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
