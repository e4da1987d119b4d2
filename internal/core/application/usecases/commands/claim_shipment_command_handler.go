package commands

import (
	"context"
	"errors"
	"time"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/metrics"
)

// ClaimShipmentCommandHandler is the assignment coordinator. The decision is
// a single conditional write in the repository, so of N concurrent claims on
// one shipment exactly one wins and the others get errs.AlreadyAssignedError.
//
// Example:
//
//	s, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, errs.ErrAlreadyAssigned):
//	    // somebody else was faster; refresh the list
//	case errors.Is(err, errs.ErrObjectNotFound):
//	    // unknown shipment
//	case err != nil:
//	    return err
//	}
type ClaimShipmentCommandHandler struct {
	uowFactory ShipmentUoWFactory
	notifier   ports.Notifier
	metrics    *metrics.ShipmentMetrics
}

func NewClaimShipmentCommandHandler(
	uowFactory ShipmentUoWFactory,
	notifier ports.Notifier,
	m *metrics.ShipmentMetrics,
) ClaimShipmentCommandHandler {
	return ClaimShipmentCommandHandler{
		uowFactory: uowFactory,
		notifier:   notifier,
		metrics:    m,
	}
}

// Handle claims the shipment and notifies its owner on success.
func (h ClaimShipmentCommandHandler) Handle(ctx context.Context, command ClaimShipmentCommand) (*shipment.Shipment, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	requester := command.Requester()
	if err := shipment.CanClaim(requester); err != nil {
		h.metrics.IncClaim("unauthorized")
		return nil, err
	}

	entry, err := shipment.NewClaimEntry(time.Now())
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

	claimed, err := uow.ShipmentRepository().ConditionalAssign(ctx, command.ShipmentID(), requester.UserID(), entry)
	if err != nil {
		h.metrics.IncClaim(claimOutcome(err))
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	h.metrics.IncClaim("won")
	h.metrics.IncTransition(claimed.Status().String())
	announce(ctx, h.notifier, claimed)
	return claimed, nil
}

func claimOutcome(err error) string {
	switch {
	case errors.Is(err, errs.ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, errs.ErrObjectNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}
