// Package transport implements the websocket connection pump (§6): one
// goroutine pair per connected session pushing/pulling JSON {event,data}
// envelopes. Grounded on internal/server/bot.go's ReadPump/WritePump
// pattern, with the wire codec redesigned from msgpack to JSON per §6's
// envelope contract (see DESIGN.md).
package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// envelope is the wire shape of every message in either direction (§6).
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Dispatcher is the subset of session.Coordinator a Conn drives. Accepting
// an interface rather than *session.Coordinator keeps this package testable
// without a live engine.
type Dispatcher interface {
	Connect(ctx context.Context, sessionID, token string, sender session.Sender) (*session.Session, error)
	Dispatch(s *session.Session, event string, data map[string]any) map[string]any
	Disconnect(sessionID string)
}

// Conn wraps one websocket connection and pumps envelopes to and from the
// Session Coordinator. Grounded on Bot's send channel plus ReadPump/
// WritePump pair, generalized from a single bot-pool client to any
// Dispatcher-shaped coordinator.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	logger zerolog.Logger
	coord  Dispatcher
	sess   *session.Session
}

// NewConn wraps ws as session id with coord as its Session Coordinator.
// token is the handshake credential (e.g. a query parameter or subprotocol
// value) passed straight through to Dispatcher.Connect.
func NewConn(id string, ws *websocket.Conn, coord Dispatcher, token string, logger zerolog.Logger) (*Conn, error) {
	c := &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With().Str("component", "transport").Str("session_id", id).Logger(),
		coord:  coord,
	}
	sess, err := coord.Connect(context.Background(), id, token, c)
	if err != nil {
		return nil, err
	}
	c.sess = sess
	return c, nil
}

// Send implements session.Sender: it marshals (event, data) as an envelope
// and queues it for the write pump.
func (c *Conn) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	select {
	case c.send <- body:
		return nil
	case <-time.After(writeWait):
		return websocket.ErrCloseSent
	}
}

// Run starts the read and write pumps and blocks until the connection
// closes. Grounded on Bot.ReadPump/WritePump, called from the same
// goroutine pair a caller would otherwise spawn by hand.
func (c *Conn) Run() {
	done := make(chan struct{})
	go c.writePump(done)
	c.readPump()
	close(done)
	c.coord.Disconnect(c.id)
}

func (c *Conn) readPump() {
	defer func() {
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn().Err(err).Msg("malformed envelope")
			continue
		}
		var data map[string]any
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				c.logger.Warn().Err(err).Msg("malformed envelope data")
				continue
			}
		}

		reply := c.coord.Dispatch(c.sess, env.Event, data)
		if err := c.Send(env.Event, reply); err != nil {
			c.logger.Debug().Err(err).Msg("reply dropped, connection closing")
			return
		}
	}
}

func (c *Conn) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
