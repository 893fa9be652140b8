package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type emission struct {
	Event   string
	Payload json.RawMessage
}

// memTransport is an in-process Transport that records emits and lets tests
// push server events.
type memTransport struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]func(json.RawMessage)
	emitted  []emission
	emitErr  error
}

func newMemTransport() *memTransport {
	return &memTransport{handlers: make(map[string]map[int]func(json.RawMessage))}
}

func (m *memTransport) Emit(_ context.Context, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emitErr != nil {
		return m.emitErr
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.emitted = append(m.emitted, emission{Event: event, Payload: raw})
	return nil
}

func (m *memTransport) On(event string, handler func(json.RawMessage)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := m.next
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]func(json.RawMessage))
	}
	m.handlers[event][id] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
	}
}

func (m *memTransport) deliver(t *testing.T, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	m.mu.Lock()
	hs := make([]func(json.RawMessage), 0, len(m.handlers[event]))
	for _, h := range m.handlers[event] {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(raw)
	}
}

func (m *memTransport) handlerCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[event])
}

func (m *memTransport) emits(event string) []emission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []emission
	for _, e := range m.emitted {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakePersister struct {
	mu         sync.Mutex
	history    History
	historyErr error
	persistErr error
	records    []Record

	// Optional hooks run inside the calls, before they return.
	duringHistory func()
	duringPersist func()
}

func (f *fakePersister) History(_ context.Context, _ Participants) (History, error) {
	if f.duringHistory != nil {
		f.duringHistory()
	}
	return f.history, f.historyErr
}

func (f *fakePersister) Persist(_ context.Context, rec Record) error {
	if f.duringPersist != nil {
		f.duringPersist()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.persistErr
}

func (f *fakePersister) setPersistErr(err error) {
	f.mu.Lock()
	f.persistErr = err
	f.mu.Unlock()
}

func (f *fakePersister) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

var errBackendDown = errors.New("backend down")

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeLog) notify(x Notice) {
	n.mu.Lock()
	n.notices = append(n.notices, x)
	n.mu.Unlock()
}

func (n *noticeLog) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NoticeKind, 0, len(n.notices))
	for _, x := range n.notices {
		out = append(out, x.Kind)
	}
	return out
}
