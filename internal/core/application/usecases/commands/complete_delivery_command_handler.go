package commands

import (
	"context"
	"time"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/metrics"
)

// CompleteDeliveryCommandHandler records delivery together with its proof in
// one transaction: the status write and the proof write commit or roll back
// together.
type CompleteDeliveryCommandHandler struct {
	uowFactory ShipmentUoWFactory
	notifier   ports.Notifier
	metrics    *metrics.ShipmentMetrics
}

func NewCompleteDeliveryCommandHandler(
	uowFactory ShipmentUoWFactory,
	notifier ports.Notifier,
	m *metrics.ShipmentMetrics,
) CompleteDeliveryCommandHandler {
	return CompleteDeliveryCommandHandler{
		uowFactory: uowFactory,
		notifier:   notifier,
		metrics:    m,
	}
}

func (h CompleteDeliveryCommandHandler) Handle(ctx context.Context, command CompleteDeliveryCommand) (*shipment.Shipment, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	proof, err := shipment.NewProofOfDelivery(command.Signature(), command.Photo(), now)
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

	repo := uow.ShipmentRepository()

	aggregate, err := repo.Get(ctx, command.ShipmentID())
	if err != nil {
		return nil, err
	}

	change, err := aggregate.Deliver(command.Requester(), proof, now)
	if err != nil {
		return nil, err
	}

	if err = repo.AppendHistoryAndSetStatus(ctx, aggregate.ID(), change); err != nil {
		return nil, err
	}

	if err = repo.AttachProofOfDelivery(ctx, aggregate.ID(), proof); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.metrics.IncTransition(change.To().String())
	announce(ctx, h.notifier, aggregate)
	return aggregate, nil
}
