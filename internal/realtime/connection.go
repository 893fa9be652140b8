package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Peer is the authenticated user behind a realtime connection.
type Peer struct {
	UserID string
	Role   string
}

// Connection wraps a server-side websocket and funnels writes through a
// buffered channel so one goroutine owns the socket for writing.
type Connection struct {
	ID   string
	Peer Peer

	ws    *websocket.Conn
	log   zerolog.Logger
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

func NewConnection(peer Peer, ws *websocket.Conn, log zerolog.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		ID:    id,
		Peer:  peer,
		ws:    ws,
		log:   log.With().Str("conn_id", id).Str("user_id", peer.UserID).Logger(),
		send:  make(chan []byte, 128),
		close: make(chan struct{}),
	}
}

// Send enqueues payload. A client too slow to drain its buffer is disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("connection closed")
	default:
	}

	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Emit frames payload as event and enqueues it.
func (c *Connection) Emit(event string, payload any) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Serve runs the write loop and reads envelopes until the peer goes away or
// ctx ends. Each envelope is handed to handle on the reading goroutine.
func (c *Connection) Serve(ctx context.Context, handle func(Envelope)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.Close(websocket.CloseNormalClosure, "")

	go c.writeLoop(ctx)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read error")
			} else {
				c.log.Debug().Err(err).Msg("ws client disconnected")
			}
			return
		}
		handle(env)
	}
}

func (c *Connection) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.close:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Msg("ws write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
