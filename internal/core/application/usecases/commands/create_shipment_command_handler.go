package commands

import (
	"context"
	"time"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
)

// CreateShipmentCommandHandler persists new shipments. Creation produces no
// owner notification.
type CreateShipmentCommandHandler struct {
	uowFactory ShipmentUoWFactory
}

func NewCreateShipmentCommandHandler(uowFactory ShipmentUoWFactory) CreateShipmentCommandHandler {
	return CreateShipmentCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle creates the shipment and returns it.
// A reused tracking code fails with errs.ObjectAlreadyExistsError.
func (h CreateShipmentCommandHandler) Handle(ctx context.Context, command CreateShipmentCommand) (*shipment.Shipment, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	code := command.TrackingCode()
	if code == "" {
		generated, err := shipment.NewTrackingCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	aggregate, err := shipment.NewShipment(
		kernel.NewUUID(),
		code,
		command.Owner().UserID(),
		command.Details(),
		time.Now(),
	)
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.ShipmentRepository().Add(ctx, aggregate); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return aggregate, nil
}
