package commands

import (
	"errors"
	"strings"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/pkg/guard"
)

var ErrUpdateStatusCommandIsNotConstructed = errors.New(
	"UpdateStatusCommand must be created via NewUpdateStatusCommand constructor",
)

// UpdateStatusCommand moves a shipment to a new non-delivered status.
// Location is the free-form label recorded in the history entry; when it is
// empty the status label is used.
type UpdateStatusCommand struct {
	shipmentID kernel.UUID
	requester  identity.Principal
	status     shipment.Status
	location   string
	guard      guard.ConstructorGuard
}

func NewUpdateStatusCommand(
	shipmentID kernel.UUID,
	requester identity.Principal,
	status shipment.Status,
	location string,
) (UpdateStatusCommand, error) {
	if err := errors.Join(
		shipmentID.Validate(),
		requester.Validate(),
		status.Validate(),
	); err != nil {
		return UpdateStatusCommand{}, err
	}

	location = strings.TrimSpace(location)
	if location == "" {
		location = status.Label()
	}

	return UpdateStatusCommand{
		shipmentID: shipmentID,
		requester:  requester,
		status:     status,
		location:   location,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *UpdateStatusCommand) ShipmentID() kernel.UUID {
	return c.shipmentID
}

func (c *UpdateStatusCommand) Requester() identity.Principal {
	return c.requester
}

func (c *UpdateStatusCommand) Status() shipment.Status {
	return c.status
}

func (c *UpdateStatusCommand) Location() string {
	return c.location
}

func (c *UpdateStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateStatusCommandIsNotConstructed)
}
