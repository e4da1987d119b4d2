package commands

import (
	"errors"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/pkg/guard"
)

var ErrCreateShipmentCommandIsNotConstructed = errors.New(
	"CreateShipmentCommand must be created via NewCreateShipmentCommand constructor",
)

// CreateShipmentCommand registers a new Pending shipment owned by the caller.
// An empty tracking code asks the handler to generate one.
//
// Example:
//
//	details, _ := shipment.NewDetails("Books", sender, receiver, "Berlin", "Hamburg", decimal.NewFromInt(12))
//	cmd, err := NewCreateShipmentCommand(caller, details, "")
//	if err != nil {
//	    return err
//	}
//	s, err := handler.Handle(ctx, cmd)
type CreateShipmentCommand struct {
	owner        identity.Principal
	details      shipment.Details
	trackingCode shipment.TrackingCode
	guard        guard.ConstructorGuard
}

func NewCreateShipmentCommand(
	owner identity.Principal,
	details shipment.Details,
	trackingCode shipment.TrackingCode,
) (CreateShipmentCommand, error) {
	if err := errors.Join(owner.Validate(), details.Validate()); err != nil {
		return CreateShipmentCommand{}, err
	}
	if trackingCode != "" {
		code, err := shipment.ParseTrackingCode(trackingCode.String())
		if err != nil {
			return CreateShipmentCommand{}, err
		}
		trackingCode = code
	}

	return CreateShipmentCommand{
		owner:        owner,
		details:      details,
		trackingCode: trackingCode,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

func (c *CreateShipmentCommand) Owner() identity.Principal {
	return c.owner
}

func (c *CreateShipmentCommand) Details() shipment.Details {
	return c.details
}

func (c *CreateShipmentCommand) TrackingCode() shipment.TrackingCode {
	return c.trackingCode
}

func (c *CreateShipmentCommand) Validate() error {
	return c.guard.Validate(ErrCreateShipmentCommandIsNotConstructed)
}
