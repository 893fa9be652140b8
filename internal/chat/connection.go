package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
)

// Transport is the process-wide realtime connection. It is created once at
// startup and shared by every chat view; On returns the handle that detaches
// the handler again.
type Transport interface {
	Emit(ctx context.Context, event string, payload any) error
	On(event string, handler func(data json.RawMessage)) (unsubscribe func())
}

// Subscription detaches one handler. Unsubscribe is safe to call twice.
type Subscription struct {
	once sync.Once
	fn   func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.fn)
}

// ConnectionManager scopes a shared Transport to one view activation: it joins
// a single room and tracks every handler it registered so Close can drop them.
type ConnectionManager struct {
	transport Transport
	log       zerolog.Logger

	mu     sync.Mutex
	room   string
	next   uint64
	subs   map[uint64]*Subscription
	closed bool
}

func NewConnectionManager(t Transport, log zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		transport: t,
		log:       log,
		subs:      make(map[uint64]*Subscription),
	}
}

// Join emits joinRoom once. The transport does not promise idempotent joins,
// so a second call is refused instead of re-sent.
func (c *ConnectionManager) Join(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.room != "" {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	c.room = roomID
	c.mu.Unlock()

	if err := c.transport.Emit(ctx, realtime.EventJoinRoom, realtime.JoinRoom{ChatID: roomID}); err != nil {
		c.mu.Lock()
		c.room = ""
		c.mu.Unlock()
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	c.log.Debug().Str("room", roomID).Msg("joined chat room")
	return nil
}

// Room returns the joined room id, empty before Join.
func (c *ConnectionManager) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// OnMessage registers a receiveMessage handler.
func (c *ConnectionManager) OnMessage(handler func(Message)) *Subscription {
	return c.subscribe(realtime.EventReceiveMessage, func(data json.RawMessage) {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed receiveMessage")
			return
		}
		handler(msg)
	})
}

// OnTyping registers a userTyping handler. The payload is optional.
func (c *ConnectionManager) OnTyping(handler func(realtime.UserTyping)) *Subscription {
	return c.subscribe(realtime.EventUserTyping, func(data json.RawMessage) {
		var ev realtime.UserTyping
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, &ev); err != nil {
				c.log.Debug().Err(err).Msg("ignoring userTyping payload")
			}
		}
		handler(ev)
	})
}

func (c *ConnectionManager) subscribe(event string, handler func(json.RawMessage)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &Subscription{fn: func() {}}
	}

	c.next++
	id := c.next
	detach := c.transport.On(event, handler)
	sub := &Subscription{fn: func() {
		detach()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}}
	c.subs[id] = sub
	return sub
}

// Send emits sendMessage without waiting for any acknowledgement.
func (c *ConnectionManager) Send(ctx context.Context, roomID, senderID string, msg Message) error {
	payload := realtime.SendMessage{
		ChatID:   roomID,
		SenderID: senderID,
		Message:  msg.Body,
		ClientID: msg.ClientID,
		Sender:   string(msg.Sender),
	}
	if err := c.transport.Emit(ctx, realtime.EventSendMessage, payload); err != nil {
		return fmt.Errorf("emit sendMessage: %w", err)
	}
	return nil
}

// Typing emits a typing notification. Every call is sent.
func (c *ConnectionManager) Typing(ctx context.Context, roomID string) error {
	return c.transport.Emit(ctx, realtime.EventTyping, realtime.Typing{ChatID: roomID})
}

// Close detaches every handler registered through this manager.
func (c *ConnectionManager) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
