// Package ports defines the contracts between the shipment tracking core and
// its adapters: persistence, authentication and notification delivery.
// Adapters implement these interfaces; the core never imports an adapter.
package ports

import (
	"context"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
)

// ShipmentRepository is the durable store of shipment aggregates.
// Mutations other than Add are conditional writes; none of them is a
// read-then-write pair.
type ShipmentRepository interface {
	// Add persists a new shipment. A duplicate tracking code fails.
	Add(ctx context.Context, aggregate *shipment.Shipment) error

	// Get returns the shipment with its full history.
	// Returns errs.ObjectNotFoundError for unknown ids.
	Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error)

	// GetByTrackingCode returns the shipment addressed by its public code.
	// Returns errs.ObjectNotFoundError for unknown codes.
	GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error)

	// ConditionalAssign sets the agent and moves Pending to InTransit in one
	// atomic write conditioned on the agent still being unset, then appends
	// entry. It returns the updated shipment.
	//
	// Outcomes:
	//   - errs.ObjectNotFoundError: id does not resolve
	//   - errs.AlreadyAssignedError: another agent won the race
	//   - errs.InvalidTransitionError: unassigned but no longer Pending
	//
	// For N concurrent calls on the same shipment exactly one succeeds.
	ConditionalAssign(
		ctx context.Context,
		id kernel.UUID,
		agentID kernel.UUID,
		entry shipment.HistoryEntry,
	) (*shipment.Shipment, error)

	// AppendHistoryAndSetStatus appends change.Entry and sets the status in a
	// write conditioned on change.From and change.ExpectedVersion.
	// Returns errs.ConflictError when the stored shipment moved on.
	AppendHistoryAndSetStatus(ctx context.Context, id kernel.UUID, change shipment.StatusChange) error

	// AttachProofOfDelivery stores proof on a Delivered shipment.
	AttachProofOfDelivery(ctx context.Context, id kernel.UUID, proof shipment.ProofOfDelivery) error

	LocationWriter
}

// LocationWriter overwrites the current location of a shipment.
type LocationWriter interface {
	// SetCurrentLocation stores sample only if it is newer than the stored
	// one (last-write-wins by sample timestamp) and reports whether it did.
	// It never changes the shipment version.
	SetCurrentLocation(ctx context.Context, code shipment.TrackingCode, sample shipment.LocationSample) (bool, error)
}

// ShipmentReader serves the read side. Results are ordered newest first.
type ShipmentReader interface {
	Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error)
	GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error)

	// ListByOwner returns the shipments created by owner.
	ListByOwner(ctx context.Context, owner kernel.UUID) ([]*shipment.Shipment, error)

	// ListForAgent returns unassigned Pending shipments plus those assigned to agent.
	ListForAgent(ctx context.Context, agent kernel.UUID) ([]*shipment.Shipment, error)

	// ListAll returns every shipment.
	ListAll(ctx context.Context) ([]*shipment.Shipment, error)
}
