package commands

import (
	"errors"
	"strings"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

var ErrCompleteDeliveryCommandIsNotConstructed = errors.New(
	"CompleteDeliveryCommand must be created via NewCompleteDeliveryCommand constructor",
)

// CompleteDeliveryCommand marks an OutForDelivery shipment Delivered and
// stores the proof of delivery. The signature is mandatory; the photo is a
// reference to an externally stored image and may be empty.
type CompleteDeliveryCommand struct {
	shipmentID kernel.UUID
	requester  identity.Principal
	signature  string
	photo      string
	guard      guard.ConstructorGuard
}

func NewCompleteDeliveryCommand(
	shipmentID kernel.UUID,
	requester identity.Principal,
	signature string,
	photo string,
) (CompleteDeliveryCommand, error) {
	if err := errors.Join(shipmentID.Validate(), requester.Validate()); err != nil {
		return CompleteDeliveryCommand{}, err
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return CompleteDeliveryCommand{}, errs.NewValueIsRequiredError("signature")
	}

	return CompleteDeliveryCommand{
		shipmentID: shipmentID,
		requester:  requester,
		signature:  signature,
		photo:      strings.TrimSpace(photo),
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *CompleteDeliveryCommand) ShipmentID() kernel.UUID {
	return c.shipmentID
}

func (c *CompleteDeliveryCommand) Requester() identity.Principal {
	return c.requester
}

func (c *CompleteDeliveryCommand) Signature() string {
	return c.signature
}

func (c *CompleteDeliveryCommand) Photo() string {
	return c.photo
}

func (c *CompleteDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCompleteDeliveryCommandIsNotConstructed)
}
