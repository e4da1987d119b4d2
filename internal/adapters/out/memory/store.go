// Package memory keeps shipments in process memory. It backs single-instance
// development runs and tests, and honors the same atomicity contract as the
// SQL adapters: conditional writes are decided under one lock.
package memory

import (
	"context"
	"slices"
	"sync"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"
)

var (
	_ ports.ShipmentRepository = (*Store)(nil)
	_ ports.ShipmentReader     = (*Store)(nil)
)

// Store is a concurrency-safe shipment store. Every method is atomic on its
// own; a UnitOfWork groups several writes into one atomic step.
type Store struct {
	mu     sync.RWMutex
	byID   map[kernel.UUID]*shipment.Shipment
	byCode map[shipment.TrackingCode]kernel.UUID
}

func NewStore() *Store {
	return &Store{
		byID:   make(map[kernel.UUID]*shipment.Shipment),
		byCode: make(map[shipment.TrackingCode]kernel.UUID),
	}
}

// table is the storage view the repository operates on: the committed maps
// directly, or a transaction's staged overlay.
type table interface {
	lookup(id kernel.UUID) (*shipment.Shipment, bool)
	lookupCode(code shipment.TrackingCode) (kernel.UUID, bool)
	put(s *shipment.Shipment)
}

func (s *Store) lookup(id kernel.UUID) (*shipment.Shipment, bool) {
	v, ok := s.byID[id]
	return v, ok
}

func (s *Store) lookupCode(code shipment.TrackingCode) (kernel.UUID, bool) {
	id, ok := s.byCode[code]
	return id, ok
}

func (s *Store) put(v *shipment.Shipment) {
	s.byID[v.ID()] = v
	s.byCode[v.TrackingCode()] = v.ID()
}

func (s *Store) Add(ctx context.Context, aggregate *shipment.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository{t: s}.Add(ctx, aggregate)
}

func (s *Store) Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository{t: s}.Get(ctx, id)
}

func (s *Store) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository{t: s}.GetByTrackingCode(ctx, code)
}

func (s *Store) ConditionalAssign(
	ctx context.Context,
	id kernel.UUID,
	agentID kernel.UUID,
	entry shipment.HistoryEntry,
) (*shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository{t: s}.ConditionalAssign(ctx, id, agentID, entry)
}

func (s *Store) AppendHistoryAndSetStatus(ctx context.Context, id kernel.UUID, change shipment.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository{t: s}.AppendHistoryAndSetStatus(ctx, id, change)
}

func (s *Store) AttachProofOfDelivery(ctx context.Context, id kernel.UUID, proof shipment.ProofOfDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository{t: s}.AttachProofOfDelivery(ctx, id, proof)
}

func (s *Store) SetCurrentLocation(ctx context.Context, code shipment.TrackingCode, sample shipment.LocationSample) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository{t: s}.SetCurrentLocation(ctx, code, sample)
}

func (s *Store) ListByOwner(_ context.Context, owner kernel.UUID) ([]*shipment.Shipment, error) {
	return s.list(func(v *shipment.Shipment) bool {
		return v.Owner().IsEqual(owner)
	}), nil
}

func (s *Store) ListForAgent(_ context.Context, agent kernel.UUID) ([]*shipment.Shipment, error) {
	return s.list(func(v *shipment.Shipment) bool {
		return (v.Status() == shipment.Pending && v.Agent() == nil) || v.IsAssignedTo(agent)
	}), nil
}

func (s *Store) ListAll(context.Context) ([]*shipment.Shipment, error) {
	return s.list(func(*shipment.Shipment) bool { return true }), nil
}

func (s *Store) list(keep func(*shipment.Shipment) bool) []*shipment.Shipment {
	s.mu.RLock()
	out := make([]*shipment.Shipment, 0, len(s.byID))
	for _, v := range s.byID {
		if keep(v) {
			out = append(out, v.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *shipment.Shipment) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
	return out
}

// Len returns the number of stored shipments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// repository implements the write contract over a table. Callers hold the
// store lock. Stored aggregates are never mutated in place: each write
// clones, applies and puts back.
type repository struct {
	t table
}

func (r repository) Add(_ context.Context, aggregate *shipment.Shipment) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if _, exists := r.t.lookupCode(aggregate.TrackingCode()); exists {
		return errs.NewObjectAlreadyExistsError("tracking code", aggregate.TrackingCode())
	}
	if _, exists := r.t.lookup(aggregate.ID()); exists {
		return errs.NewObjectAlreadyExistsError("shipment", aggregate.ID())
	}
	r.t.put(aggregate.Clone())
	return nil
}

func (r repository) Get(_ context.Context, id kernel.UUID) (*shipment.Shipment, error) {
	v, ok := r.t.lookup(id)
	if !ok {
		return nil, errs.NewObjectNotFoundError("shipment", id)
	}
	return v.Clone(), nil
}

func (r repository) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	id, ok := r.t.lookupCode(code)
	if !ok {
		return nil, errs.NewObjectNotFoundError("tracking code", code)
	}
	return r.Get(ctx, id)
}

func (r repository) ConditionalAssign(
	_ context.Context,
	id kernel.UUID,
	agentID kernel.UUID,
	entry shipment.HistoryEntry,
) (*shipment.Shipment, error) {
	stored, ok := r.t.lookup(id)
	if !ok {
		return nil, errs.NewObjectNotFoundError("shipment", id)
	}
	next := stored.Clone()
	if err := next.AssignAgent(agentID, entry); err != nil {
		return nil, err
	}
	r.t.put(next)
	return next.Clone(), nil
}

func (r repository) AppendHistoryAndSetStatus(_ context.Context, id kernel.UUID, change shipment.StatusChange) error {
	stored, ok := r.t.lookup(id)
	if !ok {
		return errs.NewObjectNotFoundError("shipment", id)
	}
	next := stored.Clone()
	if err := next.ApplyStatusChange(change); err != nil {
		return err
	}
	r.t.put(next)
	return nil
}

func (r repository) AttachProofOfDelivery(_ context.Context, id kernel.UUID, proof shipment.ProofOfDelivery) error {
	stored, ok := r.t.lookup(id)
	if !ok {
		return errs.NewObjectNotFoundError("shipment", id)
	}
	next := stored.Clone()
	if err := next.AttachProofOfDelivery(proof); err != nil {
		return err
	}
	r.t.put(next)
	return nil
}

func (r repository) SetCurrentLocation(_ context.Context, code shipment.TrackingCode, sample shipment.LocationSample) (bool, error) {
	id, ok := r.t.lookupCode(code)
	if !ok {
		return false, errs.NewObjectNotFoundError("tracking code", code)
	}
	stored, _ := r.t.lookup(id)
	next := stored.Clone()
	if !next.UpdateLocation(sample) {
		return false, nil
	}
	r.t.put(next)
	return true, nil
}
