// Package identity models the authenticated caller as seen by the domain.
// Identity issuance is external; the domain only consumes a verified Principal.
package identity

import (
	"fmt"
	"strings"

	"shiptrack/internal/pkg/errs"
)

// Role is the coarse permission class of a principal.
type Role int

const (
	// RoleUnknown is the zero value and is never valid.
	RoleUnknown Role = iota

	// RoleCustomer owns shipments and observes them.
	RoleCustomer

	// RoleAgent claims shipments and drives them through delivery.
	RoleAgent

	// RoleAdmin may perform any non-terminal transition.
	RoleAdmin
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:  "unknown",
		RoleCustomer: "customer",
		RoleAgent:    "agent",
		RoleAdmin:    "admin",
	}
}

// ParseRole maps a token claim to a Role. "user" and "driver" are accepted
// as aliases for customer and agent.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user":
		return RoleCustomer, nil
	case "agent", "driver":
		return RoleAgent, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known role", s))
	}
}

func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "unknown"
}

// Validate rejects RoleUnknown and out-of-range values.
func (r Role) Validate() error {
	if r < RoleCustomer || r > RoleAdmin {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}
