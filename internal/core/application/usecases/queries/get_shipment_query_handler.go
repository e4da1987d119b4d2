package queries

import (
	"context"
	"errors"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"
)

type GetShipmentQueryHandler struct {
	reader ports.ShipmentReader
}

func NewGetShipmentQueryHandler(reader ports.ShipmentReader) GetShipmentQueryHandler {
	return GetShipmentQueryHandler{reader: reader}
}

// Handle resolves the reference as a tracking code first. When no shipment
// carries that code and the reference is a UUID, it is tried as an id.
// Returns errs.ObjectNotFoundError when neither matches.
func (h GetShipmentQueryHandler) Handle(ctx context.Context, query GetShipmentQuery) (ShipmentResponse, error) {
	if err := query.Validate(); err != nil {
		return ShipmentResponse{}, err
	}

	var lookupErr error
	if code, err := shipment.ParseTrackingCode(query.Ref()); err == nil {
		s, err := h.reader.GetByTrackingCode(ctx, code)
		if err == nil {
			return NewShipmentResponse(s), nil
		}
		if !errors.Is(err, errs.ErrObjectNotFound) {
			return ShipmentResponse{}, err
		}
		lookupErr = err
	}

	id, err := kernel.UUIDFromString(query.Ref())
	if err != nil {
		if lookupErr != nil {
			return ShipmentResponse{}, lookupErr
		}
		return ShipmentResponse{}, errs.NewObjectNotFoundError("shipment", query.Ref())
	}

	s, err := h.reader.Get(ctx, id)
	if err != nil {
		return ShipmentResponse{}, err
	}
	return NewShipmentResponse(s), nil
}
