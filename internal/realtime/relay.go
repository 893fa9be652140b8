package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrMissingRoom  = errors.New("chatId is required")
	ErrEmptyMessage = errors.New("message is required")
	ErrNotMember    = errors.New("not a participant of this chat")
)

// Sink receives relayed events for the rooms it serves.
type Sink interface {
	Deliver(room, event string, data json.RawMessage)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(room, event string, data json.RawMessage)

func (f SinkFunc) Deliver(room, event string, data json.RawMessage) { f(room, event, data) }

// Relay turns inbound client events into room broadcasts. Every broadcast goes
// through the Broker so clients on other instances see it too.
type Relay struct {
	broker   Broker
	log      zerolog.Logger
	clock    clock.Clock
	throttle time.Duration
	sanitize func(string) (string, error)

	mu    sync.RWMutex
	sinks []Sink

	typingMu   sync.Mutex
	lastTyping map[string]time.Time
}

type RelayOption func(*Relay)

// WithTypingThrottle drops typing signals from the same user in the same room
// that arrive within d of the last one relayed. Zero disables it.
func WithTypingThrottle(d time.Duration) RelayOption {
	return func(r *Relay) { r.throttle = d }
}

// WithSanitizer cleans message bodies before they are relayed. A rejected
// body is returned to the sender as an error.
func WithSanitizer(fn func(string) (string, error)) RelayOption {
	return func(r *Relay) { r.sanitize = fn }
}

func WithRelayClock(clk clock.Clock) RelayOption {
	return func(r *Relay) { r.clock = clk }
}

// NewRelay subscribes to broker and fans what it receives out to the sinks.
func NewRelay(broker Broker, log zerolog.Logger, opts ...RelayOption) (*Relay, error) {
	r := &Relay{
		broker:     broker,
		log:        log,
		clock:      clock.New(),
		lastTyping: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := broker.Subscribe(r.dispatch); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Relay) AddSink(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// Publish marshals payload and hands it to the broker for room.
func (r *Relay) Publish(ctx context.Context, room, event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = b
	}
	return r.broker.Publish(ctx, Event{Room: room, Name: event, Data: data})
}

func (r *Relay) dispatch(ev Event) {
	r.mu.RLock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.RUnlock()

	for _, s := range sinks {
		s.Deliver(ev.Room, ev.Name, ev.Data)
	}
}

// Authorize reports whether peer may join room. Room ids are
// "<guruId>_<studentId>", so membership is a prefix or suffix match.
func Authorize(peer Peer, room string) error {
	if room == "" {
		return ErrMissingRoom
	}
	if peer.Role == "admin" {
		return nil
	}
	if strings.HasPrefix(room, peer.UserID+"_") || strings.HasSuffix(room, "_"+peer.UserID) {
		return nil
	}
	return ErrNotMember
}

// HandleSend relays a chat message to everyone in the room, the sender
// included. Sender identity comes from the authenticated peer, not the payload.
func (r *Relay) HandleSend(ctx context.Context, peer Peer, in SendMessage) (ReceiveMessage, error) {
	if err := Authorize(peer, in.ChatID); err != nil {
		return ReceiveMessage{}, err
	}
	body := in.Message
	if strings.TrimSpace(body) == "" {
		return ReceiveMessage{}, ErrEmptyMessage
	}
	if r.sanitize != nil {
		clean, err := r.sanitize(body)
		if err != nil {
			return ReceiveMessage{}, err
		}
		body = clean
	}

	out := ReceiveMessage{
		ID:        uuid.NewString(),
		ChatID:    in.ChatID,
		Sender:    peer.Role,
		SenderID:  peer.UserID,
		Message:   body,
		ClientID:  in.ClientID,
		Timestamp: r.clock.Now().UTC(),
	}
	if err := r.Publish(ctx, in.ChatID, EventReceiveMessage, out); err != nil {
		return ReceiveMessage{}, err
	}
	return out, nil
}

// HandleTyping relays a typing signal. It reports false when the signal was
// throttled.
func (r *Relay) HandleTyping(ctx context.Context, peer Peer, in Typing) (bool, error) {
	if err := Authorize(peer, in.ChatID); err != nil {
		return false, err
	}
	if r.throttled(in.ChatID, peer.UserID) {
		return false, nil
	}
	if err := r.Publish(ctx, in.ChatID, EventUserTyping, UserTyping{ChatID: in.ChatID, UserID: peer.UserID}); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Relay) throttled(room, userID string) bool {
	if r.throttle <= 0 {
		return false
	}
	key := room + "|" + userID
	now := r.clock.Now()

	r.typingMu.Lock()
	defer r.typingMu.Unlock()
	if last, ok := r.lastTyping[key]; ok && now.Sub(last) < r.throttle {
		return true
	}
	r.lastTyping[key] = now
	return false
}

// Close releases the broker subscription.
func (r *Relay) Close() error {
	return r.broker.Close()
}
