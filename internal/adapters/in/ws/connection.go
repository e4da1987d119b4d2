package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/domain/model/identity"

	"github.com/gorilla/websocket"
)

// connection adapts a websocket to realtime.Conn. Outgoing events go through
// a bounded buffer drained by writePump; a full buffer drops the event.
type connection struct {
	id        string
	ws        *websocket.Conn
	principal identity.Principal
	send      chan realtime.Event
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newConnection(id string, ws *websocket.Conn, principal identity.Principal, buffer int) *connection {
	return &connection{
		id:        id,
		ws:        ws,
		principal: principal,
		send:      make(chan realtime.Event, buffer),
		done:      make(chan struct{}),
	}
}

func (c *connection) ID() string { return c.id }

func (c *connection) Send(ev realtime.Event) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *connection) Closed() bool { return c.closed.Load() }

// authenticated reports whether the client presented a valid token.
func (c *connection) authenticated() bool {
	return c.principal.Validate() == nil
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (g *Gateway) readPump(c *connection) {
	defer c.close()

	c.ws.SetReadLimit(g.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(g.opts.PongWait))
	})

	for {
		var msg inbound
		if err := c.ws.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.Send(realtime.NewErrorEvent("malformed message"))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("Connection read failed", "conn", c.id, "error", err)
			}
			return
		}
		g.dispatch(c, msg)
	}
}

func (g *Gateway) writePump(c *connection) {
	ticker := time.NewTicker(g.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				g.logger.Debug("Connection write failed", "conn", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
