package realtime

import (
	"context"
	"log/slog"
)

// Backplane relays broadcasts to other instances serving the same rooms.
type Backplane interface {
	Publish(ctx context.Context, key Key, ev Event) error
}

// Fanout broadcasts to local members and, when a backplane is configured, to
// every other instance. Backplane failures are logged; local delivery has
// already happened by then.
type Fanout struct {
	rooms     *RoomRegistry
	backplane Backplane
	logger    *slog.Logger
}

// NewFanout wires rooms to an optional backplane. backplane may be nil.
func NewFanout(rooms *RoomRegistry, backplane Backplane, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{
		rooms:     rooms,
		backplane: backplane,
		logger:    logger.With("component", "fanout"),
	}
}

// Broadcast delivers ev to the local members of key and forwards it to the
// backplane. It returns the number of local connections that accepted it.
func (f *Fanout) Broadcast(ctx context.Context, key Key, ev Event) int {
	delivered := f.rooms.Broadcast(key, ev)
	if f.backplane == nil {
		return delivered
	}
	if err := f.backplane.Publish(ctx, key, ev); err != nil {
		f.logger.WarnContext(ctx, "backplane publish failed", "key", key.String(), "event", ev.Name, "error", err)
	}
	return delivered
}

// Deliver hands an event received from another instance to local members only.
func (f *Fanout) Deliver(key Key, ev Event) int {
	return f.rooms.Broadcast(key, ev)
}
