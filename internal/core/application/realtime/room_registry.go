package realtime

import (
	"errors"
	"hash/fnv"
	"log/slog"
	"runtime/debug"
	"sync"

	"shiptrack/internal/pkg/errs"
)

// DefaultShardCount is used when NewRoomRegistry is given a non-positive count.
const DefaultShardCount = 32

// ErrConnectionClosed is returned when joining with a connection that has
// already been closed.
var ErrConnectionClosed = errors.New("connection is closed")

// Conn is one live client connection.
type Conn interface {
	// ID is unique among live connections.
	ID() string

	// Send queues ev without blocking and reports whether it was accepted.
	// A full buffer or a closed connection drops the event.
	Send(ev Event) bool

	// Closed reports whether the connection has been shut down.
	Closed() bool
}

// Stats is a point-in-time count of live memberships.
type Stats struct {
	Rooms       int
	Channels    int
	Connections int
}

// RoomRegistry tracks which connections belong to which rooms and channels.
//
// Members are spread over shards by FNV-1a hash of the key. A second set of
// shards, hashed by connection id, indexes the keys each connection joined so
// DropConnection does not scan every room.
//
// Locking order is always index shard, then room shard. Broadcast holds the
// room shard read lock while it sends, so once Leave or DropConnection has
// returned no later broadcast reaches that connection. Conn.Send never
// blocks, which keeps the read lock short.
type RoomRegistry struct {
	rooms   []*roomShard
	index   []*indexShard
	logger  *slog.Logger
	onEvent func(event string, delivered, dropped int)
}

type roomShard struct {
	mu      sync.RWMutex
	members map[Key]map[string]Conn
}

type indexShard struct {
	mu   sync.Mutex
	keys map[string]map[Key]struct{}
}

// NewRoomRegistry creates a registry with shards shards of each kind.
func NewRoomRegistry(shards int, logger *slog.Logger) *RoomRegistry {
	if shards <= 0 {
		shards = DefaultShardCount
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &RoomRegistry{
		rooms:  make([]*roomShard, shards),
		index:  make([]*indexShard, shards),
		logger: logger.With("component", "room_registry"),
	}
	for i := range shards {
		r.rooms[i] = &roomShard{members: make(map[Key]map[string]Conn)}
		r.index[i] = &indexShard{keys: make(map[string]map[Key]struct{})}
	}
	return r
}

// OnBroadcast registers a callback invoked after every broadcast with the
// number of connections that accepted and dropped the event. It must be
// set before the registry is shared.
func (r *RoomRegistry) OnBroadcast(fn func(event string, delivered, dropped int)) {
	r.onEvent = fn
}

// Join adds conn to the room or channel at key. Joining twice is a no-op.
func (r *RoomRegistry) Join(conn Conn, key Key) error {
	if conn == nil {
		return errs.NewValueIsRequiredError("connection")
	}
	if !key.IsValid() {
		return errs.NewValueIsInvalidError("room key")
	}

	idx := r.indexShardFor(conn.ID())
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Checked under the index lock: a connection closed before DropConnection
	// runs can never re-enter a room afterwards.
	if conn.Closed() {
		return ErrConnectionClosed
	}

	shard := r.roomShardFor(key)
	shard.mu.Lock()
	members, ok := shard.members[key]
	if !ok {
		members = make(map[string]Conn)
		shard.members[key] = members
	}
	members[conn.ID()] = conn
	shard.mu.Unlock()

	keys, ok := idx.keys[conn.ID()]
	if !ok {
		keys = make(map[Key]struct{})
		idx.keys[conn.ID()] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// Leave removes conn from key. Leaving a room one never joined is a no-op.
func (r *RoomRegistry) Leave(conn Conn, key Key) {
	if conn == nil {
		return
	}

	idx := r.indexShardFor(conn.ID())
	idx.mu.Lock()
	defer idx.mu.Unlock()

	r.removeMember(conn.ID(), key)
	if keys, ok := idx.keys[conn.ID()]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(idx.keys, conn.ID())
		}
	}
}

// DropConnection removes conn from every room and channel it joined.
func (r *RoomRegistry) DropConnection(conn Conn) {
	if conn == nil {
		return
	}

	idx := r.indexShardFor(conn.ID())
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for key := range idx.keys[conn.ID()] {
		r.removeMember(conn.ID(), key)
	}
	delete(idx.keys, conn.ID())
}

// Broadcast sends ev to every member of key and returns how many accepted it.
// Closed members are skipped.
func (r *RoomRegistry) Broadcast(key Key, ev Event) int {
	shard := r.roomShardFor(key)

	delivered, dropped := 0, 0
	shard.mu.RLock()
	for _, conn := range shard.members[key] {
		if r.safeSend(conn, ev) {
			delivered++
		} else {
			dropped++
		}
	}
	shard.mu.RUnlock()

	if r.onEvent != nil {
		r.onEvent(ev.Name, delivered, dropped)
	}
	return delivered
}

// IsMember reports whether conn is currently in key.
func (r *RoomRegistry) IsMember(conn Conn, key Key) bool {
	shard := r.roomShardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	_, ok := shard.members[key][conn.ID()]
	return ok
}

// Stats counts rooms, channels and connections holding at least one membership.
func (r *RoomRegistry) Stats() Stats {
	var s Stats
	for _, shard := range r.rooms {
		shard.mu.RLock()
		for key := range shard.members {
			switch key.Kind {
			case KindRoom:
				s.Rooms++
			case KindChannel:
				s.Channels++
			}
		}
		shard.mu.RUnlock()
	}
	for _, idx := range r.index {
		idx.mu.Lock()
		s.Connections += len(idx.keys)
		idx.mu.Unlock()
	}
	return s
}

func (r *RoomRegistry) removeMember(connID string, key Key) {
	shard := r.roomShardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	members, ok := shard.members[key]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(shard.members, key)
	}
}

// safeSend keeps one misbehaving connection from aborting the broadcast.
func (r *RoomRegistry) safeSend(conn Conn, ev Event) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("connection send panicked",
				"conn", conn.ID(), "event", ev.Name, "panic", rec, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	if conn.Closed() {
		return false
	}
	return conn.Send(ev)
}

func (r *RoomRegistry) roomShardFor(key Key) *roomShard {
	return r.rooms[shardIndex(key.String(), len(r.rooms))]
}

func (r *RoomRegistry) indexShardFor(connID string) *indexShard {
	return r.index[shardIndex(connID, len(r.index))]
}

func shardIndex(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(n))
}
