package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shiptrack/internal/adapters/out/memory"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitPublishesStagedWrites(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	uow := memory.NewUnitOfWorkFactory(store).Create()

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Begin(ctx))
	s := newShipment(t, "TRK-1", kernel.NewUUID(), base)
	require.NoError(t, uow.ShipmentRepository().Add(ctx, s))

	staged, err := uow.ShipmentRepository().GetByTrackingCode(ctx, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, s.ID(), staged.ID())

	require.NoError(t, uow.Commit(ctx))
	require.ErrorIs(t, uow.Rollback(ctx), memory.ErrNoTransaction)

	assert.Equal(t, 1, store.Len())
}

func TestUnitOfWork_RollbackDiscardsEveryWrite(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()
	agent, err := identity.NewPrincipal(kernel.NewUUID(), identity.RoleAgent)
	require.NoError(t, err)

	s := newShipment(t, "TRK-1", kernel.NewUUID(), base)
	require.NoError(t, store.Add(ctx, s))
	_, err = store.ConditionalAssign(ctx, s.ID(), agent.UserID(), claimEntry(t))
	require.NoError(t, err)

	uow := memory.NewUnitOfWorkFactory(store).Create()
	require.NoError(t, uow.Begin(ctx))
	repo := uow.ShipmentRepository()

	current, err := repo.Get(ctx, s.ID())
	require.NoError(t, err)
	change, err := current.Transition(agent, shipment.OutForDelivery, "", base.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.AppendHistoryAndSetStatus(ctx, s.ID(), change))

	require.NoError(t, uow.Rollback(ctx))

	stored, err := store.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, shipment.InTransit, stored.Status())
}

func TestUnitOfWork_CommitWithoutBegin(t *testing.T) {
	uow := memory.NewUnitOfWorkFactory(memory.NewStore()).Create()

	require.ErrorIs(t, uow.Commit(t.Context()), memory.ErrNoTransaction)
}

func TestUnitOfWork_BeginHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := memory.NewUnitOfWorkFactory(memory.NewStore()).Create().Begin(ctx)

	require.True(t, errors.Is(err, context.Canceled))
}
