package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/design-bureau/internal/application/port"
)

var (
	// ErrValidation marks input rejected before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing record
	ErrNotFound = port.ErrNotFound

	// ErrTransaction marks a store failure; the whole operation was rolled back
	ErrTransaction = errors.New("transaction failed")
)

// ValidationError describes a rejected field
type ValidationError struct {
	Field string
	Msg   string
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Msg)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransactionError wraps a store failure of an operation
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransaction) match
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

// WrapStoreError classifies err for callers. Validation and not-found errors
// pass through, anything else becomes a TransactionError.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransaction) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}
