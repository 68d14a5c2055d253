package workflow

import "github.com/garyjia/design-bureau/internal/domain/entity"

// State is a contract lifecycle status
type State string

const (
	StateNew              State = entity.StatusNew
	StateInProgress       State = entity.StatusInProgress
	StateDelivered        State = entity.StatusDelivered
	StateTerminated       State = entity.StatusTerminated
	StateUnderSupervision State = entity.StatusUnderSupervision
)

var validStates = map[State]bool{
	StateNew:              true,
	StateInProgress:       true,
	StateDelivered:        true,
	StateTerminated:       true,
	StateUnderSupervision: true,
}

// stampedStates record status_changed_at on first entry
var stampedStates = map[State]bool{
	StateDelivered:        true,
	StateTerminated:       true,
	StateUnderSupervision: true,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known contract status
func (s State) IsValid() bool {
	return validStates[s]
}

// StampsChangeTime reports whether entering s records status_changed_at
func (s State) StampsChangeTime() bool {
	return stampedStates[s]
}
