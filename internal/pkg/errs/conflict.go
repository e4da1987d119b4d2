package errs

import (
	"errors"
	"fmt"
)

// ErrConflict is the sentinel wrapped by ConflictError.
var ErrConflict = errors.New("concurrent modification conflict")

// ConflictError reports an optimistic concurrency loss: the stored aggregate
// no longer matches the version or status the write was conditioned on.
type ConflictError struct {
	ParamName       string
	ID              any
	ExpectedVersion int64
}

// NewConflictError creates an error for a write that lost an optimistic concurrency race.
func NewConflictError(paramName string, id any, expectedVersion int64) *ConflictError {
	return &ConflictError{
		ParamName:       paramName,
		ID:              id,
		ExpectedVersion: expectedVersion,
	}
}

func (e *ConflictError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s %v, expected version is %d",
		ErrConflict, e.ParamName, e.ID, e.ExpectedVersion))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
