package queries

import (
	"errors"
	"strings"

	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

var ErrGetShipmentQueryIsNotConstructed = errors.New(
	"GetShipmentQuery must be created via NewGetShipmentQuery constructor",
)

// GetShipmentQuery looks a shipment up by tracking code, falling back to its
// id. It is public: knowing the code is the only credential.
//
// Example:
//
//	query, err := NewGetShipmentQuery("TRK-7QK2M9XA")
//	if err != nil {
//	    return err
//	}
//	resp, err := handler.Handle(ctx, query)
type GetShipmentQuery struct {
	ref   string
	guard guard.ConstructorGuard
}

func NewGetShipmentQuery(ref string) (GetShipmentQuery, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return GetShipmentQuery{}, errs.NewValueIsRequiredError("tracking code or id")
	}
	return GetShipmentQuery{
		ref:   ref,
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (q GetShipmentQuery) Ref() string {
	return q.ref
}

func (q GetShipmentQuery) Validate() error {
	return q.guard.Validate(ErrGetShipmentQueryIsNotConstructed)
}
