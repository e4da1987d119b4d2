package realtime_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"shiptrack/internal/adapters/out/memory"
	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/domain/services"
	"shiptrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	store    *memory.Store
	registry *realtime.RoomRegistry
	writer   *realtime.LocationWriter
	relay    *realtime.LocationRelay
	bus      *recordingBackplane
	clock    time.Time
}

func newRelayFixture(t *testing.T, bind bool) *relayFixture {
	t.Helper()
	f := &relayFixture{
		store:    memory.NewStore(),
		registry: realtime.NewRoomRegistry(4, nil),
		bus:      &recordingBackplane{},
		clock:    base.Add(time.Hour),
	}
	f.writer = realtime.NewLocationWriter(f.store, nil, nil)
	relay, err := realtime.NewLocationRelay(
		realtime.NewFanout(f.registry, f.bus, nil),
		f.writer,
		f.store,
		realtime.RelayOptions{BindPublisher: bind, Now: func() time.Time { return f.clock }},
		nil,
	)
	require.NoError(t, err)
	f.relay = relay
	return f
}

func TestLocationRelay_PublishReachesRoomIncludingPublisher(t *testing.T) {
	f := newRelayFixture(t, true)
	agent := principal(t, identity.RoleAgent)
	claim(t, f.store, seed(t, f.store, "TRK-1", kernel.NewUUID()), agent)

	publisherConn := newFakeConn("agent", 4)
	watcher := newFakeConn("watcher", 4)
	elsewhere := newFakeConn("elsewhere", 4)
	require.NoError(t, f.registry.Join(publisherConn, realtime.RoomKey("TRK-1")))
	require.NoError(t, f.registry.Join(watcher, realtime.RoomKey("TRK-1")))
	require.NoError(t, f.registry.Join(elsewhere, realtime.RoomKey("TRK-2")))

	delivered, err := f.relay.Publish(t.Context(), "TRK-1", agent, 52.52, 13.405)

	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	want := realtime.Event{Name: realtime.EventReceiveLocation, Data: realtime.LocationPayload{Lat: 52.52, Lng: 13.405}}
	assert.Equal(t, []realtime.Event{want}, publisherConn.received())
	assert.Equal(t, []realtime.Event{want}, watcher.received())
	assert.Empty(t, elsewhere.received())

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, realtime.RoomKey("TRK-1"), f.bus.keys[0])
	assert.Equal(t, 1, f.writer.Pending())
}

func TestLocationRelay_PersistsLatestOnFlush(t *testing.T) {
	f := newRelayFixture(t, true)
	agent := principal(t, identity.RoleAgent)
	claim(t, f.store, seed(t, f.store, "TRK-1", kernel.NewUUID()), agent)

	_, err := f.relay.Publish(t.Context(), "TRK-1", agent, 1, 1)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Second)
	_, err = f.relay.Publish(t.Context(), "TRK-1", agent, 2, 2)
	require.NoError(t, err)

	stored, err := f.store.GetByTrackingCode(t.Context(), "TRK-1")
	require.NoError(t, err)
	assert.Nil(t, stored.CurrentLocation(), "persistence waits for the flush")

	assert.Equal(t, 1, f.writer.Flush(t.Context()))

	stored, err = f.store.GetByTrackingCode(t.Context(), "TRK-1")
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentLocation())
	assert.Equal(t, 2.0, stored.CurrentLocation().Point().Lat())
	assert.Equal(t, f.clock, stored.CurrentLocation().At())
	assert.Equal(t, int64(2), stored.Version(), "location writes leave the version alone")
}

func TestLocationRelay_Rejections(t *testing.T) {
	f := newRelayFixture(t, true)
	agent := principal(t, identity.RoleAgent)
	claim(t, f.store, seed(t, f.store, "TRK-1", kernel.NewUUID()), agent)
	seed(t, f.store, "TRK-2", kernel.NewUUID())

	watcher := newFakeConn("watcher", 4)
	require.NoError(t, f.registry.Join(watcher, realtime.RoomKey("TRK-1")))

	tests := []struct {
		name      string
		code      string
		publisher identity.Principal
		lat, lng  float64
		want      error
	}{
		{name: "latitude out of range", code: "TRK-1", publisher: agent, lat: 91, lng: 0, want: errs.ErrValueIsOutOfRange},
		{name: "longitude out of range", code: "TRK-1", publisher: agent, lat: 0, lng: -180.5, want: errs.ErrValueIsOutOfRange},
		{name: "empty code", code: " ", publisher: agent, want: errs.ErrValueIsRequired},
		{name: "unknown shipment", code: "TRK-404", publisher: agent, want: errs.ErrObjectNotFound},
		{name: "other agent", code: "TRK-1", publisher: principal(t, identity.RoleAgent), want: errs.ErrUnauthorized},
		{name: "admin is not the agent", code: "TRK-1", publisher: principal(t, identity.RoleAdmin), want: errs.ErrUnauthorized},
		{name: "unassigned shipment", code: "TRK-2", publisher: agent, want: errs.ErrUnauthorized},
		{name: "anonymous publisher", code: "TRK-1", publisher: identity.Principal{}, want: errs.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.relay.Publish(t.Context(), tt.code, tt.publisher, tt.lat, tt.lng)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, watcher.received())
	assert.Zero(t, f.writer.Pending())
}

func TestLocationRelay_BindingDisabledSkipsLookup(t *testing.T) {
	registry := realtime.NewRoomRegistry(4, nil)
	writer := realtime.NewLocationWriter(memory.NewStore(), nil, nil)
	relay, err := realtime.NewLocationRelay(realtime.NewFanout(registry, nil, nil), writer, nil, realtime.RelayOptions{}, nil)
	require.NoError(t, err)

	watcher := newFakeConn("watcher", 4)
	require.NoError(t, registry.Join(watcher, realtime.RoomKey("TRK-404")))

	delivered, err := relay.Publish(t.Context(), "TRK-404", identity.Principal{}, 10, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, watcher.received(), 1)
}

func TestNewLocationRelay_Validation(t *testing.T) {
	fanout := realtime.NewFanout(realtime.NewRoomRegistry(1, nil), nil, nil)
	writer := realtime.NewLocationWriter(memory.NewStore(), nil, nil)

	_, err := realtime.NewLocationRelay(nil, writer, nil, realtime.RelayOptions{}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = realtime.NewLocationRelay(fanout, nil, nil, realtime.RelayOptions{}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = realtime.NewLocationRelay(fanout, writer, nil, realtime.RelayOptions{BindPublisher: true}, nil)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)
}

type countingReader struct {
	*memory.Store
	lookups atomic.Int32
}

func (r *countingReader) GetByTrackingCode(ctx context.Context, code shipment.TrackingCode) (*shipment.Shipment, error) {
	r.lookups.Add(1)
	return r.Store.GetByTrackingCode(ctx, code)
}

func newCachingRelay(t *testing.T, reader *countingReader, size int) *realtime.LocationRelay {
	t.Helper()
	relay, err := realtime.NewLocationRelay(
		realtime.NewFanout(realtime.NewRoomRegistry(1, nil), nil, nil),
		realtime.NewLocationWriter(reader.Store, nil, nil),
		reader,
		realtime.RelayOptions{BindPublisher: true, AgentCacheSize: size},
		nil,
	)
	require.NoError(t, err)
	return relay
}

func cancel(t *testing.T, store *memory.Store, s *shipment.Shipment) *shipment.Shipment {
	t.Helper()
	change, err := s.Transition(principal(t, identity.RoleAdmin), shipment.Cancelled, "", base.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.AppendHistoryAndSetStatus(t.Context(), s.ID(), change))
	return s
}

func TestLocationRelay_AgentCache(t *testing.T) {
	agent := principal(t, identity.RoleAgent)

	t.Run("active shipment is looked up once", func(t *testing.T) {
		reader := &countingReader{Store: memory.NewStore()}
		claim(t, reader.Store, seed(t, reader.Store, "TRK-1", kernel.NewUUID()), agent)
		relay := newCachingRelay(t, reader, 0)

		for range 3 {
			_, err := relay.Publish(t.Context(), "TRK-1", agent, 1, 1)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), reader.lookups.Load())
	})

	t.Run("capacity evicts the least recent code", func(t *testing.T) {
		reader := &countingReader{Store: memory.NewStore()}
		for _, code := range []shipment.TrackingCode{"TRK-1", "TRK-2", "TRK-3"} {
			claim(t, reader.Store, seed(t, reader.Store, code, kernel.NewUUID()), agent)
		}
		relay := newCachingRelay(t, reader, 2)

		for _, code := range []string{"TRK-1", "TRK-2", "TRK-3", "TRK-1"} {
			_, err := relay.Publish(t.Context(), code, agent, 1, 1)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(4), reader.lookups.Load())
	})

	t.Run("terminal shipment is not cached", func(t *testing.T) {
		reader := &countingReader{Store: memory.NewStore()}
		cancel(t, reader.Store, claim(t, reader.Store, seed(t, reader.Store, "TRK-1", kernel.NewUUID()), agent))
		relay := newCachingRelay(t, reader, 0)

		for range 2 {
			_, err := relay.Publish(t.Context(), "TRK-1", agent, 1, 1)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), reader.lookups.Load())
	})

	t.Run("terminal notification forgets the cached agent", func(t *testing.T) {
		reader := &countingReader{Store: memory.NewStore()}
		claimed := claim(t, reader.Store, seed(t, reader.Store, "TRK-1", kernel.NewUUID()), agent)
		relay := newCachingRelay(t, reader, 0)
		hub := realtime.NewNotificationHub(realtime.NewFanout(realtime.NewRoomRegistry(1, nil), nil, nil), nil)
		hub.OnTerminal(relay.Forget)

		_, err := relay.Publish(t.Context(), "TRK-1", agent, 1, 1)
		require.NoError(t, err)

		n, err := services.NewNotificationComposer().Compose(cancel(t, reader.Store, claimed))
		require.NoError(t, err)
		hub.Notify(t.Context(), n)

		_, err = relay.Publish(t.Context(), "TRK-1", agent, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int32(2), reader.lookups.Load())
	})
}
