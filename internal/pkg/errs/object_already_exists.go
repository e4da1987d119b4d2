package errs

import (
	"errors"
	"fmt"
)

// ErrObjectAlreadyExists is the sentinel wrapped by ObjectAlreadyExistsError.
var ErrObjectAlreadyExists = errors.New("object already exists")

// ObjectAlreadyExistsError reports a uniqueness violation, such as a reused
// tracking code.
type ObjectAlreadyExistsError struct {
	ParamName string
	ID        any
}

func NewObjectAlreadyExistsError(paramName string, id any) *ObjectAlreadyExistsError {
	return &ObjectAlreadyExistsError{
		ParamName: paramName,
		ID:        id,
	}
}

func (e *ObjectAlreadyExistsError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s %v", ErrObjectAlreadyExists, e.ParamName, e.ID))
}

func (e *ObjectAlreadyExistsError) Unwrap() error {
	return ErrObjectAlreadyExists
}
