package errs

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the sentinel wrapped by UnauthorizedError.
var ErrUnauthorized = errors.New("requester is not authorized")

// UnauthorizedError reports a requester lacking the role or relationship
// an operation requires.
type UnauthorizedError struct {
	Requester any
	Action    string
	Cause     error
}

// NewUnauthorizedError creates an error for a requester that may not perform action.
func NewUnauthorizedError(requester any, action string) *UnauthorizedError {
	return &UnauthorizedError{
		Requester: requester,
		Action:    action,
	}
}

// NewUnauthorizedErrorWithCause creates an authorization error with the underlying cause.
func NewUnauthorizedErrorWithCause(requester any, action string, cause error) *UnauthorizedError {
	return &UnauthorizedError{
		Requester: requester,
		Action:    action,
		Cause:     cause,
	}
}

func (e *UnauthorizedError) Error() string {
	if e.Cause != nil {
		return sanitize(fmt.Sprintf("%s: %v may not %s (cause: %v)", ErrUnauthorized, e.Requester, e.Action, e.Cause))
	}
	return sanitize(fmt.Sprintf("%s: %v may not %s", ErrUnauthorized, e.Requester, e.Action))
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}
