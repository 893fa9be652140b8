package chat

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type ChangeKind int

const (
	ChangeSeeded ChangeKind = iota + 1
	ChangeAppended
	ChangeDelivered
	ChangeStatus
	ChangeTyping
)

// Change describes one observable update of a session.
type Change struct {
	Kind    ChangeKind
	Message Message
	Typing  bool
}

// Store is the append-only message list of the active conversation.
// Order is insertion order: history arrives pre-ordered and live events are
// appended as they come. Entries are never removed.
type Store struct {
	mu       sync.RWMutex
	clock    clock.Clock
	messages []Message
	onChange func(Change)
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{clock: clk}
}

// OnChange installs the observer. It runs outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Seed loads the fetched history. Entries appended while the history request
// was in flight are kept after it unless the history already holds them, by id
// or by clientId (the relayed copy and the stored row have different ids).
func (s *Store) Seed(history []Message) {
	s.mu.Lock()
	seenIDs := make(map[string]struct{}, len(history))
	seenClients := make(map[string]struct{}, len(history))
	seeded := make([]Message, 0, len(history)+len(s.messages))
	for _, m := range history {
		if m.ID != "" {
			seenIDs[m.ID] = struct{}{}
		}
		if m.ClientID != "" {
			seenClients[m.ClientID] = struct{}{}
		}
		seeded = append(seeded, m)
	}
	for _, m := range s.messages {
		if _, dup := seenIDs[m.ID]; dup && m.ID != "" {
			continue
		}
		if _, dup := seenClients[m.ClientID]; dup && m.ClientID != "" {
			continue
		}
		seeded = append(seeded, m)
	}
	s.messages = seeded
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(Change{Kind: ChangeSeeded})
	}
}

// AppendLocal appends an optimistic message composed by the current user.
func (s *Store) AppendLocal(body string, sender Role) Message {
	msg := Message{
		ID:        TempIDPrefix + uuid.NewString(),
		Sender:    sender,
		Body:      body,
		Timestamp: s.clock.Now().UTC(),
		ClientID:  uuid.NewString(),
		Status:    StatusPending,
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(Change{Kind: ChangeAppended, Message: msg})
	}
	return msg
}

// AppendRemote appends msg as received. Identical payloads are not collapsed;
// the only echo suppressed is one carrying the client id of a message this
// store composed itself. It reports whether msg was appended.
func (s *Store) AppendRemote(msg Message) bool {
	s.mu.Lock()
	if msg.ClientID != "" {
		for _, m := range s.messages {
			if m.IsLocal() && m.ClientID == msg.ClientID {
				s.mu.Unlock()
				return false
			}
		}
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.clock.Now().UTC()
	}
	s.messages = append(s.messages, msg)
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(Change{Kind: ChangeAppended, Message: msg})
	}
	return true
}

// MarkDelivered flags the local message tempID as delivered.
func (s *Store) MarkDelivered(tempID string) bool {
	return s.update(tempID, ChangeDelivered, func(m *Message) bool {
		if !m.IsLocal() || m.Delivered {
			return false
		}
		m.Delivered = true
		return true
	})
}

// SetStatus moves a local message to st.
func (s *Store) SetStatus(id string, st Status) bool {
	return s.update(id, ChangeStatus, func(m *Message) bool {
		if !m.IsLocal() || m.Status == st {
			return false
		}
		m.Status = st
		return true
	})
}

func (s *Store) update(id string, kind ChangeKind, mutate func(*Message) bool) bool {
	s.mu.Lock()
	var (
		changed bool
		updated Message
	)
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		changed = mutate(&s.messages[i])
		updated = s.messages[i]
		break
	}
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn(Change{Kind: kind, Message: updated})
	}
	return changed
}

func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns a copy in render order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
