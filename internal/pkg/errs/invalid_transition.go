package errs

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the sentinel wrapped by InvalidTransitionError.
var ErrInvalidTransition = errors.New("transition is invalid")

// InvalidTransitionError reports a state change not allowed by a state machine,
// including any change out of a terminal state.
type InvalidTransitionError struct {
	From  fmt.Stringer
	To    fmt.Stringer
	Cause error
}

// NewInvalidTransitionError creates an error for a forbidden from -> to change.
func NewInvalidTransitionError(from, to fmt.Stringer) *InvalidTransitionError {
	return &InvalidTransitionError{
		From: from,
		To:   to,
	}
}

// NewInvalidTransitionErrorWithCause creates a transition error with the rule that rejected it.
func NewInvalidTransitionErrorWithCause(from, to fmt.Stringer, cause error) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:  from,
		To:    to,
		Cause: cause,
	}
}

func (e *InvalidTransitionError) Error() string {
	if e.Cause != nil {
		return sanitize(fmt.Sprintf("%s: %s -> %s (cause: %v)", ErrInvalidTransition, e.From, e.To, e.Cause))
	}
	return sanitize(fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To))
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
