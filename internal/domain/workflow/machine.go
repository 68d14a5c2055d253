package workflow

import "context"

// StateMachine tracks the current status and applies triggers
type StateMachine interface {
	// State returns the current state
	State() State

	// Fire executes the trigger, moving to its target state
	Fire(ctx context.Context, trigger Trigger) error
}

// NewStatusMachine builds the contract status machine positioned at initial.
// Every status is reachable from every other status; the column a card moves
// to decides the status, not the status it comes from.
func NewStatusMachine(initial State) (StateMachine, error) {
	if !initial.IsValid() {
		return nil, ErrInvalidState
	}

	b := NewBuilder()
	for from := range validStates {
		cfg := b.Configure(from)
		for to := range validStates {
			if to == from {
				continue
			}
			trigger, _ := TriggerFor(to)
			cfg.Permit(trigger, to)
		}
	}
	return b.Build(initial), nil
}

// Transition moves a status machine from one status to another.
// Same-status transitions are a no-op.
func Transition(ctx context.Context, from, to State) error {
	if !to.IsValid() {
		return ErrInvalidState
	}
	if from == to {
		return nil
	}

	m, err := NewStatusMachine(from)
	if err != nil {
		return err
	}

	trigger, ok := TriggerFor(to)
	if !ok {
		return ErrInvalidState
	}
	return m.Fire(ctx, trigger)
}
