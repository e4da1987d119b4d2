package commands_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/domain/services"
	"shiptrack/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockShipmentRepository struct{ mock.Mock }

func (m *MockShipmentRepository) Add(ctx context.Context, s *shipment.Shipment) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockShipmentRepository) Get(ctx context.Context, id kernel.UUID) (*shipment.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) ConditionalAssign(
	ctx context.Context,
	id kernel.UUID,
	agentID kernel.UUID,
	entry shipment.HistoryEntry,
) (*shipment.Shipment, error) {
	args := m.Called(ctx, id, agentID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) AppendHistoryAndSetStatus(ctx context.Context, id kernel.UUID, change shipment.StatusChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

func (m *MockShipmentRepository) AttachProofOfDelivery(ctx context.Context, id kernel.UUID, proof shipment.ProofOfDelivery) error {
	args := m.Called(ctx, id, proof)
	return args.Error(0)
}

func (m *MockShipmentRepository) SetCurrentLocation(ctx context.Context, code shipment.TrackingCode, sample shipment.LocationSample) (bool, error) {
	args := m.Called(ctx, code, sample)
	return args.Bool(0), args.Error(1)
}

type MockShipmentUoW struct{ mock.Mock }

func (m *MockShipmentUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockShipmentUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockShipmentUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockShipmentUoW) ShipmentRepository() ports.ShipmentRepository {
	args := m.Called()
	return args.Get(0).(ports.ShipmentRepository)
}

type MockShipmentUoWFactory struct{ mock.Mock }

func (m *MockShipmentUoWFactory) Create() commands.ShipmentUoW {
	args := m.Called()
	return args.Get(0).(commands.ShipmentUoW)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, n services.Notification) {
	m.Called(ctx, n)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPrincipal(t *testing.T, role identity.Role) identity.Principal {
	t.Helper()
	p, err := identity.NewPrincipal(kernel.NewUUID(), role)
	require.NoError(t, err)
	return p
}

func newDetails(t *testing.T) shipment.Details {
	t.Helper()
	d, err := shipment.NewDetails(
		"Laptop",
		shipment.Party{Name: "Alice", Address: "Berlin"},
		shipment.Party{Name: "Bob", Address: "Hamburg"},
		"Berlin",
		"Hamburg",
		decimal.NewFromInt(30),
	)
	require.NoError(t, err)
	return d
}

func newPendingShipment(t *testing.T, owner kernel.UUID) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewShipment(kernel.NewUUID(), "TRK-1", owner, newDetails(t), fixedNow)
	require.NoError(t, err)
	return s
}

func newClaimedShipment(t *testing.T, owner kernel.UUID, agent identity.Principal) *shipment.Shipment {
	t.Helper()
	s := newPendingShipment(t, owner)
	entry, err := shipment.NewClaimEntry(fixedNow.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.AssignAgent(agent.UserID(), entry))
	return s
}

// notificationFor matches a notification addressed to owner whose message
// mentions the tracking code.
func notificationFor(owner kernel.UUID, code string, typ services.NotificationType) any {
	return mock.MatchedBy(func(n services.Notification) bool {
		return n.OwnerID.IsEqual(owner) &&
			n.Type == typ &&
			n.Shipment != nil &&
			strings.Contains(n.Message, code)
	})
}
