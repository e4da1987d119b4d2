package commands

import (
	"context"
	"time"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/metrics"
)

// UpdateStatusCommandHandler drives the shipment state machine for every
// transition except delivery. The write is conditioned on the status and
// version the change was computed from; losing that race yields
// errs.ConflictError and leaves the stored shipment untouched.
type UpdateStatusCommandHandler struct {
	uowFactory ShipmentUoWFactory
	notifier   ports.Notifier
	metrics    *metrics.ShipmentMetrics
}

func NewUpdateStatusCommandHandler(
	uowFactory ShipmentUoWFactory,
	notifier ports.Notifier,
	m *metrics.ShipmentMetrics,
) UpdateStatusCommandHandler {
	return UpdateStatusCommandHandler{
		uowFactory: uowFactory,
		notifier:   notifier,
		metrics:    m,
	}
}

func (h UpdateStatusCommandHandler) Handle(ctx context.Context, command UpdateStatusCommand) (*shipment.Shipment, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.ShipmentRepository()

	aggregate, err := repo.Get(ctx, command.ShipmentID())
	if err != nil {
		return nil, err
	}

	change, err := aggregate.Transition(command.Requester(), command.Status(), command.Location(), time.Now())
	if err != nil {
		return nil, err
	}

	if err = repo.AppendHistoryAndSetStatus(ctx, aggregate.ID(), change); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.metrics.IncTransition(change.To().String())
	announce(ctx, h.notifier, aggregate)
	return aggregate, nil
}
