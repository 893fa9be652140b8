package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var ErrClosed = errors.New("realtime: connection closed")

// Client is the Go side of the /ws transport. One Client is shared by every
// chat view in the process; views attach handlers with On and drop them with
// the returned func.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger
	send chan []byte

	mu       sync.RWMutex
	next     uint64
	handlers map[string]map[uint64]func(json.RawMessage)

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to rawURL, passing token as the ?token= query parameter.
func Dial(ctx context.Context, rawURL, token string, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse ws url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	c := newClient(conn, log)
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

func newClient(conn *websocket.Conn, log zerolog.Logger) *Client {
	return &Client{
		conn:     conn,
		log:      log,
		send:     make(chan []byte, 64),
		handlers: make(map[string]map[uint64]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
}

// Emit queues an event for the server. It does not wait for any reply.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// On registers handler for event and returns the func that removes it.
func (c *Client) On(event string, handler func(json.RawMessage)) func() {
	c.mu.Lock()
	c.next++
	id := c.next
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]func(json.RawMessage))
	}
	c.handlers[event][id] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers[event], id)
		c.mu.Unlock()
	}
}

// Done is closed once the connection is gone. A dropped connection is not
// redialled; events simply stop.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, nil while it is open.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.err = cause
		if c.err == nil {
			c.err = ErrClosed
		}
		close(c.done)
		deadline := time.Now().Add(writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
	})
}

func (c *Client) dispatch(env Envelope) {
	c.mu.RLock()
	hs := make([]func(json.RawMessage), 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		hs = append(hs, h)
	}
	c.mu.RUnlock()

	for _, h := range hs {
		h(env.Data)
	}
}

func (c *Client) readLoop() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("realtime connection lost")
			}
			c.shutdown(err)
			return
		}
		if env.Event == EventError {
			var p ErrorPayload
			_ = env.Decode(&p)
			c.log.Warn().Str("error", p.Error).Msg("server rejected event")
		}
		c.dispatch(env)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown(err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}
