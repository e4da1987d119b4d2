package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultAgentCacheSize = 4096
	defaultAgentCacheTTL  = 5 * time.Minute
)

// RelayOptions configures a LocationRelay.
type RelayOptions struct {
	// BindPublisher restricts publishing to the shipment's assigned agent.
	BindPublisher bool

	// AgentCacheSize bounds how many tracking codes keep their assigned
	// agent cached. Defaults to 4096.
	AgentCacheSize int

	// AgentCacheTTL expires cached agents. Defaults to 5 minutes.
	AgentCacheTTL time.Duration

	// Now stamps incoming samples. Defaults to time.Now.
	Now func() time.Time
}

// LocationRelay accepts agent positions for a shipment, broadcasts them to
// the shipment's tracking room and queues them for persistence.
type LocationRelay struct {
	fanout *Fanout
	writer *LocationWriter
	reader ports.ShipmentReader
	bind   bool
	now    func() time.Time
	logger *slog.Logger
	agents *expirable.LRU[shipment.TrackingCode, kernel.UUID]
}

// NewLocationRelay wires the relay. reader is only consulted when
// opts.BindPublisher is set and may be nil otherwise.
func NewLocationRelay(
	fanout *Fanout,
	writer *LocationWriter,
	reader ports.ShipmentReader,
	opts RelayOptions,
	logger *slog.Logger,
) (*LocationRelay, error) {
	if fanout == nil {
		return nil, errs.NewValueIsRequiredError("fanout")
	}
	if writer == nil {
		return nil, errs.NewValueIsRequiredError("location writer")
	}
	if opts.BindPublisher && reader == nil {
		return nil, errs.NewValueIsRequiredError("shipment reader")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AgentCacheSize <= 0 {
		opts.AgentCacheSize = defaultAgentCacheSize
	}
	if opts.AgentCacheTTL <= 0 {
		opts.AgentCacheTTL = defaultAgentCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LocationRelay{
		fanout: fanout,
		writer: writer,
		reader: reader,
		bind:   opts.BindPublisher,
		now:    opts.Now,
		logger: logger.With("component", "location_relay"),
		agents: expirable.NewLRU[shipment.TrackingCode, kernel.UUID](opts.AgentCacheSize, nil, opts.AgentCacheTTL),
	}, nil
}

// Publish validates the position, checks the publisher and broadcasts
// receive_location to every member of the tracking room, the publisher
// included. Persistence happens later and never fails the call.
//
// Returns:
//   - errs.ValueIsOutOfRangeError for coordinates outside WGS84 bounds
//   - errs.ValueIsRequiredError or errs.ValueIsInvalidError for a malformed tracking code
//   - errs.ObjectNotFoundError for an unknown shipment (publisher binding only)
//   - errs.UnauthorizedError when the publisher is not the assigned agent
func (r *LocationRelay) Publish(
	ctx context.Context,
	code string,
	publisher identity.Principal,
	lat, lng float64,
) (int, error) {
	trackingCode, err := shipment.ParseTrackingCode(code)
	if err != nil {
		return 0, err
	}
	point, err := kernel.NewGeoPoint(lat, lng)
	if err != nil {
		return 0, err
	}
	sample, err := shipment.NewLocationSample(point, r.now())
	if err != nil {
		return 0, err
	}
	if r.bind {
		if err := r.authorize(ctx, trackingCode, publisher); err != nil {
			r.logger.WarnContext(ctx, "Rejected location publish", "tracking_code", code, "error", err)
			return 0, err
		}
	}

	delivered := r.fanout.Broadcast(ctx, RoomKey(trackingCode), Event{
		Name: EventReceiveLocation,
		Data: LocationPayload{Lat: point.Lat(), Lng: point.Lng()},
	})
	r.writer.Enqueue(trackingCode, sample)
	return delivered, nil
}

func (r *LocationRelay) authorize(ctx context.Context, code shipment.TrackingCode, publisher identity.Principal) error {
	if err := publisher.Validate(); err != nil {
		return errs.NewUnauthorizedErrorWithCause(nil, "publish location", err)
	}

	agent, err := r.assignedAgent(ctx, code)
	if err != nil {
		return err
	}
	if agent == nil {
		return errs.NewUnauthorizedErrorWithCause(publisher.UserID(), "publish location",
			errors.New("shipment has no assigned agent"))
	}
	if !publisher.Is(*agent) {
		return errs.NewUnauthorizedErrorWithCause(publisher.UserID(), "publish location",
			errors.New("publisher is not the assigned agent"))
	}
	return nil
}

// assignedAgent caches the agent per tracking code in a bounded LRU. An
// assignment is never changed or cleared, so a cached agent cannot go stale.
// Unassigned shipments are looked up again on every call and yield nil.
// Shipments in a terminal status are not cached and drop any cached entry.
func (r *LocationRelay) assignedAgent(ctx context.Context, code shipment.TrackingCode) (*kernel.UUID, error) {
	if agent, ok := r.agents.Get(code); ok {
		return &agent, nil
	}

	s, err := r.reader.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}
	assigned := s.Agent()
	if assigned == nil {
		return nil, nil
	}

	if s.Status().IsTerminal() {
		r.agents.Remove(code)
	} else {
		r.agents.Add(code, *assigned)
	}
	return assigned, nil
}

// Forget drops the cached agent of code. It is called once a shipment
// reaches a terminal status.
func (r *LocationRelay) Forget(code shipment.TrackingCode) {
	r.agents.Remove(code)
}
