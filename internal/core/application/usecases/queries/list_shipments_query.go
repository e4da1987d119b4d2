package queries

import (
	"errors"
	"fmt"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

var ErrListShipmentsQueryIsNotConstructed = errors.New(
	"ListShipmentsQuery must be created via NewListShipmentsQuery constructor",
)

// Scope selects which shipments a list query returns.
type Scope int

const (
	ScopeUnknown Scope = iota
	// ScopeOwned lists the requester's own shipments.
	ScopeOwned
	// ScopeAvailable lists unclaimed Pending shipments plus those assigned to
	// the requesting agent.
	ScopeAvailable
	// ScopeAll lists every shipment; administrators only.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeOwned:
		return "owned"
	case ScopeAvailable:
		return "available"
	case ScopeAll:
		return "all"
	default:
		return "unknown"
	}
}

type ListShipmentsQuery struct {
	requester identity.Principal
	scope     Scope
	guard     guard.ConstructorGuard
}

// NewListShipmentsQuery checks that the requester may use the scope.
func NewListShipmentsQuery(requester identity.Principal, scope Scope) (ListShipmentsQuery, error) {
	if err := requester.Validate(); err != nil {
		return ListShipmentsQuery{}, err
	}

	switch scope {
	case ScopeOwned:
	case ScopeAvailable:
		if !requester.IsAgent() {
			return ListShipmentsQuery{}, errs.NewUnauthorizedError(requester.UserID(), "list available shipments")
		}
	case ScopeAll:
		if !requester.IsAdmin() {
			return ListShipmentsQuery{}, errs.NewUnauthorizedError(requester.UserID(), "list all shipments")
		}
	default:
		return ListShipmentsQuery{}, errs.NewValueIsInvalidErrorWithCause("scope", fmt.Errorf("%d is not a valid scope", scope))
	}

	return ListShipmentsQuery{
		requester: requester,
		scope:     scope,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (q ListShipmentsQuery) Requester() identity.Principal {
	return q.requester
}

func (q ListShipmentsQuery) Scope() Scope {
	return q.scope
}

func (q ListShipmentsQuery) Validate() error {
	return q.guard.Validate(ErrListShipmentsQueryIsNotConstructed)
}
