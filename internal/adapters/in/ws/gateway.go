// Package ws serves the streaming endpoint. Clients exchange JSON envelopes
// {"event": ..., "data": ...} to join tracking rooms and their own
// notification channel, and agents publish positions with update_location.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
)

// Options tunes connection handling. Zero fields take the defaults below.
type Options struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	// CheckOrigin overrides the same-origin check of the upgrader.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	return o
}

// Gateway upgrades HTTP requests and routes client events to the registry
// and the location relay.
//
// A token in the Authorization header or the "token" query parameter is
// optional: anonymous clients may follow tracking rooms, while
// join_user_room and update_location need an authenticated principal.
type Gateway struct {
	auth     ports.Authenticator
	rooms    *realtime.RoomRegistry
	relay    *realtime.LocationRelay
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
	seq      atomic.Uint64

	conns    sync.Map
	shutdown atomic.Bool
}

func NewGateway(
	auth ports.Authenticator,
	rooms *realtime.RoomRegistry,
	relay *realtime.LocationRelay,
	opts Options,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Gateway{
		auth:  auth,
		rooms: rooms,
		relay: relay,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		logger: logger.With("component", "ws_gateway"),
	}
}

// ServeHTTP upgrades the request and blocks until the connection ends.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.shutdown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	principal, err := g.authenticate(r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.DebugContext(r.Context(), "Upgrade failed", "error", err)
		return
	}

	c := newConnection(g.nextID(), socket, principal, g.opts.SendBuffer)
	g.conns.Store(c.id, c)
	defer g.conns.Delete(c.id)
	if g.shutdown.Load() {
		c.close()
	}
	g.logger.DebugContext(r.Context(), "Connection opened", "conn", c.id, "authenticated", c.authenticated())

	var wg conc.WaitGroup
	wg.Go(func() { g.writePump(c) })
	wg.Go(func() { g.readPump(c) })
	wg.Wait()

	g.rooms.DropConnection(c)
	g.logger.DebugContext(r.Context(), "Connection closed", "conn", c.id)
}

// Close refuses new connections and asks every open one to close. It does
// not wait for the pumps to finish.
func (g *Gateway) Close() {
	g.shutdown.Store(true)
	g.conns.Range(func(_, v any) bool {
		v.(*connection).close()
		return true
	})
}

func (g *Gateway) authenticate(r *http.Request) (identity.Principal, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(rest)
		}
	}
	if token == "" || g.auth == nil {
		return identity.Principal{}, nil
	}
	return g.auth.Verify(r.Context(), token)
}

func (g *Gateway) nextID() string {
	return "conn-" + strconv.FormatUint(g.seq.Add(1), 10)
}

func (g *Gateway) dispatch(c *connection, msg inbound) {
	ctx := context.Background()

	var err error
	switch msg.Event {
	case realtime.EventJoinTracking:
		err = g.joinTracking(c, msg.Data)
	case realtime.EventLeaveTracking:
		err = g.leaveTracking(c, msg.Data)
	case realtime.EventJoinUserRoom:
		err = g.joinUserRoom(c, msg.Data)
	case realtime.EventUpdateLocation:
		err = g.updateLocation(ctx, c, msg.Data)
	default:
		err = fmt.Errorf("unknown event %q", msg.Event)
	}

	if err != nil {
		g.logger.DebugContext(ctx, "Event rejected", "conn", c.id, "event", msg.Event, "error", err)
		c.Send(realtime.NewErrorEvent(clientMessage(err)))
	}
}

func (g *Gateway) joinTracking(c *connection, data json.RawMessage) error {
	code, err := decodeTrackingCode(data)
	if err != nil {
		return err
	}
	return g.rooms.Join(c, realtime.RoomKey(code))
}

func (g *Gateway) leaveTracking(c *connection, data json.RawMessage) error {
	code, err := decodeTrackingCode(data)
	if err != nil {
		return err
	}
	g.rooms.Leave(c, realtime.RoomKey(code))
	return nil
}

// joinUserRoom subscribes the caller to a notification channel. Users may
// only join their own channel; administrators may join any.
func (g *Gateway) joinUserRoom(c *connection, data json.RawMessage) error {
	if !c.authenticated() {
		return errs.NewUnauthorizedError("anonymous", "join user room")
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("userId", err)
	}
	userID, err := kernel.UUIDFromString(raw)
	if err != nil {
		return err
	}
	if !c.principal.Is(userID) && !c.principal.IsAdmin() {
		return errs.NewUnauthorizedError(c.principal.UserID(), "join user room "+userID.String())
	}
	return g.rooms.Join(c, realtime.ChannelKey(userID))
}

type updateLocationPayload struct {
	TrackingCode string `json:"trackingCode"`
	Location     *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"location"`
}

func (g *Gateway) updateLocation(ctx context.Context, c *connection, data json.RawMessage) error {
	var payload updateLocationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("update_location", err)
	}
	if payload.Location == nil || payload.Location.Lat == nil || payload.Location.Lng == nil {
		return errs.NewValueIsRequiredError("location")
	}

	_, err := g.relay.Publish(ctx, payload.TrackingCode, c.principal, *payload.Location.Lat, *payload.Location.Lng)
	return err
}

// decodeTrackingCode accepts a bare JSON string or {"trackingCode": "..."}.
func decodeTrackingCode(data json.RawMessage) (shipment.TrackingCode, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			TrackingCode string `json:"trackingCode"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return "", errs.NewValueIsInvalidErrorWithCause("trackingCode", err)
		}
		raw = wrapped.TrackingCode
	}
	return shipment.ParseTrackingCode(raw)
}

// clientMessage hides internal failures from clients.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return "not authorized"
	case errors.Is(err, errs.ErrObjectNotFound):
		return "shipment not found"
	case errors.Is(err, realtime.ErrConnectionClosed):
		return "connection closed"
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return err.Error()
	case strings.HasPrefix(err.Error(), "unknown event"):
		return err.Error()
	default:
		return "internal error"
	}
}
