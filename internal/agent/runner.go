// Package agent drives a GPS session on behalf of a delivery agent and
// streams the fixes to the server as update_location events.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/gps"
	"shiptrack/internal/pkg/errs"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
)

// ErrSessionActive is returned when Run is called while a session is running.
var ErrSessionActive = errors.New("a location session is already active")

const writeWait = 10 * time.Second

type Config struct {
	// URL of the streaming endpoint, e.g. ws://localhost:8082/ws.
	URL          string
	Token        string
	TrackingCode shipment.TrackingCode
	Session      gps.Options
}

// Runner owns at most one GPS session at a time.
type Runner struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
	active atomic.Bool
}

func NewRunner(cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.URL == "" {
		return nil, errs.NewValueIsRequiredError("url")
	}
	if cfg.Token == "" {
		return nil, errs.NewValueIsRequiredError("token")
	}
	if _, err := shipment.ParseTrackingCode(string(cfg.TrackingCode)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "agent_runner", "tracking_code", string(cfg.TrackingCode)),
	}, nil
}

// Active reports whether a session is running.
func (r *Runner) Active() bool {
	return r.active.Load()
}

// Run connects, follows the tracking room and publishes every fix from
// source until ctx ends or the session fails. A failed session is reported
// as its acquisition error.
func (r *Runner) Run(ctx context.Context, source gps.Source) error {
	if !r.active.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	defer r.active.Store(false)

	header := http.Header{"Authorization": {"Bearer " + r.cfg.Token}}
	conn, resp, err := r.dialer.DialContext(ctx, r.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", r.cfg.URL, err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(event string, data any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(realtime.Event{Name: event, Data: data})
	}

	code := string(r.cfg.TrackingCode)
	if err := write(realtime.EventJoinTracking, code); err != nil {
		return fmt.Errorf("join tracking room: %w", err)
	}

	publish := func(_ context.Context, fix gps.Fix) error {
		return write(realtime.EventUpdateLocation, map[string]any{
			"trackingCode": code,
			"location":     realtime.LocationPayload{Lat: fix.Point.Lat(), Lng: fix.Point.Lng()},
		})
	}
	session, err := gps.NewSession(source, publish, r.cfg.Session, r.logger)
	if err != nil {
		return err
	}

	readerDone := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(readerDone)
		r.read(ctx, conn)
	})

	session.Start(ctx)
	r.logger.InfoContext(ctx, "Location session started")

	select {
	case <-ctx.Done():
	case <-session.Done():
	case <-readerDone:
		r.logger.WarnContext(ctx, "Connection lost")
	}
	var failure error
	if session.State() == gps.StateFailed {
		failure = session.Err()
	}
	session.Stop()

	writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	writeMu.Unlock()
	_ = conn.Close()
	wg.Wait()

	r.logger.InfoContext(ctx, "Location session ended", "error", failure)
	return failure
}

func (r *Runner) read(ctx context.Context, conn *websocket.Conn) {
	for {
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Event {
		case realtime.EventError:
			var payload realtime.ErrorPayload
			_ = json.Unmarshal(msg.Data, &payload)
			r.logger.WarnContext(ctx, "Server rejected event", "message", payload.Message)
		case realtime.EventReceiveLocation:
			r.logger.DebugContext(ctx, "Location echoed", "data", string(msg.Data))
		}
	}
}
