package commands_test

import (
	"errors"
	"strings"
	"testing"

	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateShipmentCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	owner := newPrincipal(t, identity.RoleCustomer)
	cmd, err := commands.NewCreateShipmentCommand(owner, newDetails(t), "")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("ShipmentRepository").Return(repo).Once(),
		repo.On("Add", ctx, mock.AnythingOfType("*shipment.Shipment")).Return(nil).Once(),
		uow.On("Commit", ctx).Return(nil).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	handler := commands.NewCreateShipmentCommandHandler(factory)
	created, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, shipment.Pending, created.Status())
	assert.True(t, created.Owner().IsEqual(owner.UserID()))
	assert.True(t, strings.HasPrefix(created.TrackingCode().String(), "TRK-"))
	require.Len(t, created.History(), 1)
	assert.Equal(t, "Berlin", created.History()[0].Location())

	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
	factory.AssertExpectations(t)
}

func TestCreateShipmentCommandHandler_Handle_KeepsProvidedCode(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateShipmentCommand(newPrincipal(t, identity.RoleAdmin), newDetails(t), "TRK-1")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)

	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(nil).Once()
	uow.On("ShipmentRepository").Return(repo).Once()
	repo.On("Add", ctx, mock.MatchedBy(func(s *shipment.Shipment) bool {
		return s.TrackingCode() == "TRK-1"
	})).Return(nil).Once()
	uow.On("Commit", ctx).Return(nil).Once()
	uow.On("Rollback", ctx).Return(nil).Once()

	created, err := commands.NewCreateShipmentCommandHandler(factory).Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, shipment.TrackingCode("TRK-1"), created.TrackingCode())
	repo.AssertExpectations(t)
}

func TestCreateShipmentCommandHandler_Handle_DuplicateCode(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateShipmentCommand(newPrincipal(t, identity.RoleCustomer), newDetails(t), "TRK-1")
	require.NoError(t, err)

	repo := new(MockShipmentRepository)
	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("ShipmentRepository").Return(repo).Once(),
		repo.On("Add", ctx, mock.Anything).Return(errs.NewObjectAlreadyExistsError("tracking code", "TRK-1")).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)

	_, err = commands.NewCreateShipmentCommandHandler(factory).Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrObjectAlreadyExists)
	uow.AssertNotCalled(t, "Commit", ctx)
}

func TestCreateShipmentCommandHandler_Handle_BeginError(t *testing.T) {
	ctx := t.Context()
	cmd, err := commands.NewCreateShipmentCommand(newPrincipal(t, identity.RoleCustomer), newDetails(t), "")
	require.NoError(t, err)

	uow := new(MockShipmentUoW)
	factory := new(MockShipmentUoWFactory)

	mock.InOrder(
		factory.On("Create").Return(uow).Once(),
		uow.On("Begin", ctx).Return(errors.New("begin error")).Once(),
	)

	_, err = commands.NewCreateShipmentCommandHandler(factory).Handle(ctx, cmd)

	require.EqualError(t, err, "begin error")
}

func TestCreateShipmentCommandHandler_Handle_ValidationError(t *testing.T) {
	factory := new(MockShipmentUoWFactory)

	_, err := commands.NewCreateShipmentCommandHandler(factory).Handle(t.Context(), commands.CreateShipmentCommand{})

	require.ErrorIs(t, err, commands.ErrCreateShipmentCommandIsNotConstructed)
	factory.AssertNotCalled(t, "Create")
}
