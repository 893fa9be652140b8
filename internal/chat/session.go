package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"github.com/rs/zerolog"
)

// DefaultDeliveryDelay is when a local message is shown as delivered. It is a
// cosmetic delay, not an acknowledgement from the server.
const DefaultDeliveryDelay = time.Second

type NoticeKind string

const (
	NoticeHistoryFailed NoticeKind = "history_failed"
	NoticePersistFailed NoticeKind = "persist_failed"
	NoticeSendFailed    NoticeKind = "send_failed"
)

// Notice is a transient, user-visible error. None of them are retried
// automatically.
type Notice struct {
	Kind      NoticeKind
	MessageID string
	Err       error
}

type Notifier func(Notice)

type SessionConfig struct {
	Identity      Identity
	CounterpartID string
}

type Option func(*Session)

func WithClock(clk clock.Clock) Option {
	return func(s *Session) { s.clock = clk }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithObserver receives store and typing changes, e.g. to redraw a view.
func WithObserver(fn func(Change)) Option {
	return func(s *Session) { s.observer = fn }
}

func WithTypingPolicy(p TypingPolicy) Option {
	return func(s *Session) { s.typingPolicy = p }
}

func WithTypingTimeout(d time.Duration) Option {
	return func(s *Session) { s.typingTimeout = d }
}

func WithDeliveryDelay(d time.Duration) Option {
	return func(s *Session) { s.deliveryDelay = d }
}

// Session is the chat controller for one open conversation.
type Session struct {
	identity     Identity
	participants Participants
	roomID       string

	conn      *ConnectionManager
	persister Persister
	store     *Store
	typing    *TypingSignal

	clock         clock.Clock
	log           zerolog.Logger
	notifier      Notifier
	observer      func(Change)
	typingPolicy  TypingPolicy
	typingTimeout time.Duration
	deliveryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	counterpart string
	opened      bool
	closed      bool
	deliveries  map[string]*clock.Timer
}

// NewSession builds a controller on top of the shared transport.
func NewSession(cfg SessionConfig, transport Transport, persister Persister, opts ...Option) (*Session, error) {
	participants, err := ParticipantsFor(cfg.Identity.Role, cfg.Identity.UserID, cfg.CounterpartID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		identity:      cfg.Identity,
		participants:  participants,
		roomID:        participants.RoomID(),
		persister:     persister,
		clock:         clock.New(),
		log:           logger.Component("chat"),
		typingTimeout: DefaultTypingTimeout,
		deliveryDelay: DefaultDeliveryDelay,
		deliveries:    make(map[string]*clock.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = s.logNotice
	}

	s.log = s.log.With().Str("room", s.roomID).Logger()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conn = NewConnectionManager(transport, s.log)
	s.store = NewStore(s.clock)
	s.typing = NewTypingSignal(s.clock, s.typingTimeout, s.typingPolicy)

	if s.observer != nil {
		s.store.OnChange(s.observer)
		s.typing.OnChange(func(on bool) {
			s.observer(Change{Kind: ChangeTyping, Typing: on})
		})
	}
	return s, nil
}

// Open subscribes to the room, joins it and seeds the history. A failed history
// fetch only produces a notice and leaves the conversation empty.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.opened = true
	s.mu.Unlock()

	// Handlers go in before the join so nothing relayed right after it is missed.
	s.conn.OnMessage(s.handleRemote)
	s.conn.OnTyping(s.handleTyping)

	if err := s.conn.Join(ctx, s.roomID); err != nil {
		s.conn.Close()
		return err
	}

	history, err := s.persister.History(ctx, s.participants)
	if err != nil {
		s.notify(Notice{Kind: NoticeHistoryFailed, Err: err})
		return nil
	}

	s.store.Seed(history.Messages)

	s.mu.Lock()
	if s.identity.Role == RoleGuru {
		s.counterpart = history.StudentName
	} else {
		s.counterpart = history.GuruName
	}
	s.mu.Unlock()

	s.log.Info().Int("messages", len(history.Messages)).Msg("chat session opened")
	return nil
}

// Send appends body optimistically, then emits it and persists it in parallel.
// The returned message is already visible; delivery and persistence outcomes
// arrive later as changes and notices.
func (s *Session) Send(ctx context.Context, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrSessionClosed
	}
	s.mu.Unlock()

	msg := s.store.AppendLocal(body, s.identity.Role)
	if !s.track(msg.ID, true) {
		return Message{}, ErrSessionClosed
	}

	if err := s.conn.Send(ctx, s.roomID, s.identity.UserID, msg); err != nil {
		s.notify(Notice{Kind: NoticeSendFailed, MessageID: msg.ID, Err: err})
	}
	s.persist(msg)

	return msg, nil
}

// NotifyTyping tells the room the local user is typing.
func (s *Session) NotifyTyping(ctx context.Context) error {
	return s.conn.Typing(ctx, s.roomID)
}

// Retry re-submits a message whose persistence failed.
func (s *Session) Retry(ctx context.Context, id string) error {
	msg, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("retry %s: %w", id, ErrNotFound)
	}
	if msg.Status != StatusFailed {
		return fmt.Errorf("retry %s: %w", id, ErrNotRetryable)
	}

	if !s.track(id, false) {
		return ErrSessionClosed
	}

	s.store.SetStatus(id, StatusPending)
	s.persist(msg)
	return nil
}

// track registers one persist call, and the delivered timer when deliver is
// set, under the same lock Close takes. Every tracked call must be followed
// by persist.
func (s *Session) track(id string, deliver bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if deliver {
		s.deliveries[id] = s.clock.AfterFunc(s.deliveryDelay, func() {
			s.mu.Lock()
			_, pending := s.deliveries[id]
			delete(s.deliveries, id)
			s.mu.Unlock()
			if pending {
				s.store.MarkDelivered(id)
			}
		})
	}
	s.wg.Add(1)
	return true
}

func (s *Session) persist(msg Message) {
	rec := Record{
		GuruID:    s.participants.GuruID,
		StudentID: s.participants.StudentID,
		Sender:    msg.Sender,
		Message:   msg.Body,
		ClientID:  msg.ClientID,
	}

	go func() {
		defer s.wg.Done()

		if err := s.persister.Persist(s.ctx, rec); err != nil {
			if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
				return
			}
			s.store.SetStatus(msg.ID, StatusFailed)
			s.notify(Notice{Kind: NoticePersistFailed, MessageID: msg.ID, Err: err})
			return
		}
		s.store.SetStatus(msg.ID, StatusPersisted)
	}()
}

func (s *Session) handleRemote(msg Message) {
	if !s.store.AppendRemote(msg) {
		s.log.Debug().Str("client_id", msg.ClientID).Msg("ignored echo of local message")
	}
}

func (s *Session) handleTyping(ev realtime.UserTyping) {
	if ev.UserID != "" && ev.UserID == s.identity.UserID {
		return
	}
	if ev.ChatID != "" && ev.ChatID != s.roomID {
		return
	}
	s.typing.Signal()
}

func (s *Session) notify(n Notice) {
	s.notifier(n)
}

func (s *Session) logNotice(n Notice) {
	s.log.Warn().Err(n.Err).Str("kind", string(n.Kind)).Str("message_id", n.MessageID).Msg("chat notice")
}

// Messages returns the conversation in render order.
func (s *Session) Messages() []Message {
	return s.store.Messages()
}

// Typing reports whether the counterpart is typing.
func (s *Session) Typing() bool {
	return s.typing.Typing()
}

func (s *Session) Counterpart() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

func (s *Session) RoomID() string {
	return s.roomID
}

func (s *Session) Participants() Participants {
	return s.participants
}

// Close detaches the room handlers, stops pending timers and waits for
// in-flight persistence calls to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.deliveries {
		t.Stop()
		delete(s.deliveries, id)
	}
	s.mu.Unlock()

	s.conn.Close()
	s.typing.Stop()
	s.cancel()
	s.wg.Wait()
}
