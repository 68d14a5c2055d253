package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrUnknownColumn is returned when a column is not part of a pipeline
	ErrUnknownColumn = errors.New("unknown pipeline column")
)
