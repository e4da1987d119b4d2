package commands_test

import (
	"testing"

	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/domain/services"
	"shiptrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func changeTo(status shipment.Status, expectedVersion int64) any {
	return mock.MatchedBy(func(c shipment.StatusChange) bool {
		return c.To() == status && c.ExpectedVersion == expectedVersion
	})
}

func TestUpdateStatusCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	owner := kernel.NewUUID()
	agent := newPrincipal(t, identity.RoleAgent)
	stored := newClaimedShipment(t, owner, agent)
	historyBefore := len(stored.History())

	cmd, err := commands.NewUpdateStatusCommand(stored.ID(), agent, shipment.OutForDelivery, "Hub 4")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)
	notifier := new(MockNotifier)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("ShipmentRepository").Return(repo).Once(),
		repo.On("Get", ctx, stored.ID()).Return(stored, nil).Once(),
		repo.On("AppendHistoryAndSetStatus", ctx, stored.ID(), changeTo(shipment.OutForDelivery, 2)).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		notifier.On("Notify", ctx, notificationFor(owner, "TRK-1", services.NotificationSuccess)).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	got, err := commands.NewUpdateStatusCommandHandler(factory, notifier, nil).Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, shipment.OutForDelivery, got.Status())
	assert.Len(t, got.History(), historyBefore+1)
	assert.Equal(t, "Hub 4", got.History()[historyBefore].Location())

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestUpdateStatusCommandHandler_Handle_Conflict(t *testing.T) {
	ctx := t.Context()
	agent := newPrincipal(t, identity.RoleAgent)
	stored := newClaimedShipment(t, kernel.NewUUID(), agent)

	cmd, err := commands.NewUpdateStatusCommand(stored.ID(), agent, shipment.OutForDelivery, "")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)
	notifier := new(MockNotifier)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("ShipmentRepository").Return(repo).Once(),
		repo.On("Get", ctx, stored.ID()).Return(stored, nil).Once(),
		repo.On("AppendHistoryAndSetStatus", ctx, stored.ID(), mock.Anything).
			Return(errs.NewConflictError("shipment", stored.ID(), 2)).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	_, err = commands.NewUpdateStatusCommandHandler(factory, notifier, nil).Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrConflict)
	uow.AssertNotCalled(t, "Commit", ctx)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestUpdateStatusCommandHandler_Handle_DomainRejections(t *testing.T) {
	agent := newPrincipal(t, identity.RoleAgent)
	stranger := newPrincipal(t, identity.RoleAgent)

	tests := []struct {
		name      string
		requester identity.Principal
		to        shipment.Status
		expected  error
	}{
		{name: "wrong agent", requester: stranger, to: shipment.OutForDelivery, expected: errs.ErrUnauthorized},
		{name: "delivery without proof", requester: agent, to: shipment.Delivered, expected: errs.ErrValueIsRequired},
		{name: "backwards", requester: agent, to: shipment.Pending, expected: errs.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			stored := newClaimedShipment(t, kernel.NewUUID(), agent)
			cmd, err := commands.NewUpdateStatusCommand(stored.ID(), tt.requester, tt.to, "")
			require.NoError(t, err)

			repo := new(MockShipmentRepository)
			uow := new(MockShipmentUoW)
			factory := new(MockShipmentUoWFactory)
			notifier := new(MockNotifier)

			factory.On("Create").Return(uow).Once()
			uow.On("Begin", ctx).Return(nil).Once()
			uow.On("ShipmentRepository").Return(repo).Once()
			repo.On("Get", ctx, stored.ID()).Return(stored, nil).Once()
			uow.On("Rollback", ctx).Return(nil).Once()

			_, err = commands.NewUpdateStatusCommandHandler(factory, notifier, nil).Handle(ctx, cmd)

			require.ErrorIs(t, err, tt.expected)
			repo.AssertNotCalled(t, "AppendHistoryAndSetStatus", mock.Anything, mock.Anything, mock.Anything)
			notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateStatusCommandHandler_Handle_OwnerCancelsUnclaimed(t *testing.T) {
	ctx := t.Context()
	owner := newPrincipal(t, identity.RoleCustomer)
	stored := newPendingShipment(t, owner.UserID())

	cmd, err := commands.NewUpdateStatusCommand(stored.ID(), owner, shipment.Cancelled, "")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)
	notifier := new(MockNotifier)

	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(nil).Once()
	uow.On("ShipmentRepository").Return(repo).Once()
	repo.On("Get", ctx, stored.ID()).Return(stored, nil).Once()
	repo.On("AppendHistoryAndSetStatus", ctx, stored.ID(), changeTo(shipment.Cancelled, 1)).Return(nil).Once()
	uow.On("Commit", ctx).Return(nil).Once()
	notifier.On("Notify", ctx, notificationFor(owner.UserID(), "TRK-1", services.NotificationWarning)).Once()
	uow.On("Rollback", ctx).Return(nil).Once()

	got, err := commands.NewUpdateStatusCommandHandler(factory, notifier, nil).Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, shipment.Cancelled, got.Status())
	notifier.AssertExpectations(t)
}

func TestUpdateStatusCommandHandler_Handle_NotFound(t *testing.T) {
	ctx := t.Context()
	id := kernel.NewUUID()
	cmd, err := commands.NewUpdateStatusCommand(id, newPrincipal(t, identity.RoleAdmin), shipment.Cancelled, "")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)

	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(nil).Once()
	uow.On("ShipmentRepository").Return(repo).Once()
	repo.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("shipment", id)).Once()
	uow.On("Rollback", ctx).Return(nil).Once()

	_, err = commands.NewUpdateStatusCommandHandler(factory, new(MockNotifier), nil).Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}
