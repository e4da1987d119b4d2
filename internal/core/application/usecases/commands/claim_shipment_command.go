package commands

import (
	"errors"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/guard"
)

var ErrClaimShipmentCommandIsNotConstructed = errors.New(
	"ClaimShipmentCommand must be created via NewClaimShipmentCommand constructor",
)

// ClaimShipmentCommand asks to assign the requesting agent to a Pending shipment.
type ClaimShipmentCommand struct {
	shipmentID kernel.UUID
	requester  identity.Principal
	guard      guard.ConstructorGuard
}

func NewClaimShipmentCommand(shipmentID kernel.UUID, requester identity.Principal) (ClaimShipmentCommand, error) {
	if err := errors.Join(shipmentID.Validate(), requester.Validate()); err != nil {
		return ClaimShipmentCommand{}, err
	}

	return ClaimShipmentCommand{
		shipmentID: shipmentID,
		requester:  requester,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *ClaimShipmentCommand) ShipmentID() kernel.UUID {
	return c.shipmentID
}

func (c *ClaimShipmentCommand) Requester() identity.Principal {
	return c.requester
}

func (c *ClaimShipmentCommand) Validate() error {
	return c.guard.Validate(ErrClaimShipmentCommandIsNotConstructed)
}
