package realtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shiptrack/internal/adapters/out/memory"
	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeConn struct {
	id     string
	events chan realtime.Event
	closed atomic.Bool
}

func newFakeConn(id string, buffer int) *fakeConn {
	return &fakeConn{id: id, events: make(chan realtime.Event, buffer)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev realtime.Event) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Closed() bool { return c.closed.Load() }

func (c *fakeConn) Close() { c.closed.Store(true) }

func (c *fakeConn) received() []realtime.Event {
	var out []realtime.Event
	for {
		select {
		case ev := <-c.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

type panickingConn struct{ id string }

func (c panickingConn) ID() string               { return c.id }
func (c panickingConn) Send(realtime.Event) bool { panic("boom") }
func (c panickingConn) Closed() bool             { return false }

type recordingBackplane struct {
	mu     sync.Mutex
	keys   []realtime.Key
	events []realtime.Event
	err    error
}

func (b *recordingBackplane) Publish(_ context.Context, key realtime.Key, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	b.events = append(b.events, ev)
	return b.err
}

type failingLocationStore struct {
	calls atomic.Int32
}

func (s *failingLocationStore) SetCurrentLocation(context.Context, shipment.TrackingCode, shipment.LocationSample) (bool, error) {
	s.calls.Add(1)
	return false, errors.New("database is down")
}

func principal(t *testing.T, role identity.Role) identity.Principal {
	t.Helper()
	p, err := identity.NewPrincipal(kernel.NewUUID(), role)
	require.NoError(t, err)
	return p
}

func seed(t *testing.T, store *memory.Store, code shipment.TrackingCode, owner kernel.UUID) *shipment.Shipment {
	t.Helper()
	details, err := shipment.NewDetails(
		"Laptop",
		shipment.Party{Name: "Alice", Address: "Berlin"},
		shipment.Party{Name: "Bob", Address: "Hamburg"},
		"Berlin",
		"Hamburg",
		decimal.NewFromInt(30),
	)
	require.NoError(t, err)
	s, err := shipment.NewShipment(kernel.NewUUID(), code, owner, details, base)
	require.NoError(t, err)
	require.NoError(t, store.Add(t.Context(), s))
	return s
}

func claim(t *testing.T, store *memory.Store, s *shipment.Shipment, agent identity.Principal) *shipment.Shipment {
	t.Helper()
	entry, err := shipment.NewClaimEntry(base.Add(time.Minute))
	require.NoError(t, err)
	claimed, err := store.ConditionalAssign(t.Context(), s.ID(), agent.UserID(), entry)
	require.NoError(t, err)
	return claimed
}

func sample(t *testing.T, lat, lng float64, at time.Time) shipment.LocationSample {
	t.Helper()
	p, err := kernel.NewGeoPoint(lat, lng)
	require.NoError(t, err)
	s, err := shipment.NewLocationSample(p, at)
	require.NoError(t, err)
	return s
}
