package application

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("application not found")
	ErrAlreadyDecided   = errors.New("application already decided")
	ErrNotTerminal      = errors.New("only approved or rejected applications can be deleted")
	ErrInvalidLoanType  = errors.New("invalid loan type")
	ErrStoreUnavailable = errors.New("application store unavailable")
)

// ValidationError means the caller omitted or malformed required input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// Unavailable wraps a store failure so callers can match ErrStoreUnavailable.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
