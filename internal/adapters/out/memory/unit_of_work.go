package memory

import (
	"context"
	"errors"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
)

// ErrNoTransaction is returned by Commit and Rollback without a prior Begin.
var ErrNoTransaction = errors.New("no active transaction")

// UnitOfWorkFactory creates units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork holds the store's write lock from Begin until Commit or
// Rollback. Writes are staged and become visible only on Commit, so a failed
// command leaves no partial state behind. Commands against one Store are
// therefore serialized, which is fine for development and tests only.
type UnitOfWork struct {
	store *Store
	tx    *staged
}

type staged struct {
	store  *Store
	byID   map[kernel.UUID]*shipment.Shipment
	byCode map[shipment.TrackingCode]kernel.UUID
}

func (t *staged) lookup(id kernel.UUID) (*shipment.Shipment, bool) {
	if v, ok := t.byID[id]; ok {
		return v, true
	}
	return t.store.lookup(id)
}

func (t *staged) lookupCode(code shipment.TrackingCode) (kernel.UUID, bool) {
	if id, ok := t.byCode[code]; ok {
		return id, true
	}
	return t.store.lookupCode(code)
}

func (t *staged) put(v *shipment.Shipment) {
	t.byID[v.ID()] = v
	t.byCode[v.TrackingCode()] = v.ID()
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.mu.Lock()
	u.tx = &staged{
		store:  u.store,
		byID:   make(map[kernel.UUID]*shipment.Shipment),
		byCode: make(map[shipment.TrackingCode]kernel.UUID),
	}
	return nil
}

func (u *UnitOfWork) Commit(context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	for _, v := range u.tx.byID {
		u.store.put(v)
	}
	u.tx = nil
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) Rollback(context.Context) error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	u.tx = nil
	u.store.mu.Unlock()
	return nil
}

// ShipmentRepository returns a repository bound to the open transaction, or
// the store itself when none is open.
func (u *UnitOfWork) ShipmentRepository() ports.ShipmentRepository {
	if u.tx == nil {
		return u.store
	}
	return repository{t: u.tx}
}
