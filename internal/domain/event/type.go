package event

// Type identifies the type of lifecycle event emitted by the eForm SDK
type Type string

const (
	TypeEformRetrieved      Type = "eform.retrieved"
	TypeEformParsedByServer Type = "eform.parsed_by_server"
	TypeEformCompleted      Type = "eform.completed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeEformRetrieved,
		TypeEformParsedByServer,
		TypeEformCompleted:
		return true
	default:
		return false
	}
}

// AllTypes returns every event type the service consumes
func AllTypes() []Type {
	return []Type{TypeEformRetrieved, TypeEformParsedByServer, TypeEformCompleted}
}
