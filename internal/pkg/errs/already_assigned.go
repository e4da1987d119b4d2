package errs

import (
	"errors"
	"fmt"
)

// ErrAlreadyAssigned is the sentinel wrapped by AlreadyAssignedError.
// It is an expected outcome under contention, not a server fault.
var ErrAlreadyAssigned = errors.New("object is already assigned")

// AlreadyAssignedError reports that a conditional claim lost to another claimant.
// Callers should re-fetch the current state.
type AlreadyAssignedError struct {
	ParamName string
	ID        any
}

// NewAlreadyAssignedError creates an error for an object that already has an assignee.
func NewAlreadyAssignedError(paramName string, id any) *AlreadyAssignedError {
	return &AlreadyAssignedError{
		ParamName: paramName,
		ID:        id,
	}
}

func (e *AlreadyAssignedError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s %v", ErrAlreadyAssigned, e.ParamName, e.ID))
}

func (e *AlreadyAssignedError) Unwrap() error {
	return ErrAlreadyAssigned
}
