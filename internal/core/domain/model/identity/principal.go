package identity

import (
	"errors"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/guard"
)

var ErrPrincipalIsNotConstructed = errors.New("Principal must be created via NewPrincipal constructor")

// Principal is a verified caller: who they are and what role they hold.
type Principal struct {
	userID kernel.UUID
	role   Role
	guard  guard.ConstructorGuard
}

// NewPrincipal validates the user id and role.
func NewPrincipal(userID kernel.UUID, role Role) (Principal, error) {
	if err := errors.Join(userID.Validate(), role.Validate()); err != nil {
		return Principal{}, err
	}
	return Principal{
		userID: userID,
		role:   role,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

func (p Principal) UserID() kernel.UUID {
	return p.userID
}

func (p Principal) Role() Role {
	return p.role
}

func (p Principal) IsAdmin() bool {
	return p.role == RoleAdmin
}

func (p Principal) IsAgent() bool {
	return p.role == RoleAgent
}

// Is reports whether the principal is the given user.
func (p Principal) Is(userID kernel.UUID) bool {
	return p.userID.IsEqual(userID)
}

// Validate fails for principals not built by NewPrincipal.
func (p Principal) Validate() error {
	return p.guard.Validate(ErrPrincipalIsNotConstructed)
}
