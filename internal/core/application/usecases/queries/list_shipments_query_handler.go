package queries

import (
	"context"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
)

type ListShipmentsQueryHandler struct {
	reader ports.ShipmentReader
}

func NewListShipmentsQueryHandler(reader ports.ShipmentReader) ListShipmentsQueryHandler {
	return ListShipmentsQueryHandler{reader: reader}
}

// Handle returns the shipments in the query scope, newest first.
func (h ListShipmentsQueryHandler) Handle(ctx context.Context, query ListShipmentsQuery) ([]ShipmentResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var (
		list []*shipment.Shipment
		err  error
	)
	userID := query.Requester().UserID()
	switch query.Scope() {
	case ScopeOwned:
		list, err = h.reader.ListByOwner(ctx, userID)
	case ScopeAvailable:
		list, err = h.reader.ListForAgent(ctx, userID)
	default:
		list, err = h.reader.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	return NewShipmentResponses(list), nil
}
