package chat

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	student = Identity{UserID: "s1", Role: RoleStudent, Username: "ravi"}
	guru    = Identity{UserID: "g1", Role: RoleGuru, Username: "anita"}
	t0      = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	session   *Session
	transport *memTransport
	persister *fakePersister
	clock     *clock.Mock
	notices   *noticeLog
}

func newFixture(t *testing.T, who Identity, counterpart string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		transport: newMemTransport(),
		persister: &fakePersister{},
		clock:     clock.NewMock(),
		notices:   &noticeLog{},
	}
	all := append([]Option{
		WithClock(f.clock),
		WithLogger(zerolog.Nop()),
		WithNotifier(f.notices.notify),
	}, opts...)

	s, err := NewSession(SessionConfig{Identity: who, CounterpartID: counterpart}, f.transport, f.persister, all...)
	require.NoError(t, err)
	f.session = s
	t.Cleanup(s.Close)
	return f
}

func (f *fixture) message(t *testing.T, id string) Message {
	t.Helper()
	for _, m := range f.session.Messages() {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("message %s not in store", id)
	return Message{}
}

func TestOpenJoinsRoomAndSeedsHistory(t *testing.T) {
	f := newFixture(t, student, "g1")
	f.persister.history = History{
		Messages:    []Message{{ID: "h1", Sender: RoleGuru, Body: "Hi", Timestamp: t0}},
		GuruName:    "anita",
		StudentName: "ravi",
	}

	require.NoError(t, f.session.Open(context.Background()))

	joins := f.transport.emits(realtime.EventJoinRoom)
	require.Len(t, joins, 1)
	assert.JSONEq(t, `{"chatId":"g1_s1"}`, string(joins[0].Payload))
	assert.Equal(t, "anita", f.session.Counterpart())
	assert.Len(t, f.session.Messages(), 1)
}

func TestOpenTwiceIsRefused(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	assert.ErrorIs(t, f.session.Open(context.Background()), ErrAlreadyJoined)
	assert.Len(t, f.transport.emits(realtime.EventJoinRoom), 1)
}

func TestOpenSurvivesHistoryFailure(t *testing.T) {
	f := newFixture(t, guru, "s1")
	f.persister.historyErr = errBackendDown

	require.NoError(t, f.session.Open(context.Background()))

	assert.Empty(t, f.session.Messages())
	assert.Equal(t, []NoticeKind{NoticeHistoryFailed}, f.notices.kinds())
}

func TestOpenMergesMessageRelayedDuringHistoryFetch(t *testing.T) {
	f := newFixture(t, student, "g1")
	f.persister.duringHistory = func() {
		f.transport.deliver(t, realtime.EventReceiveMessage, realtime.ReceiveMessage{
			ID: "relay-1", ChatID: "g1_s1", Sender: "guru", SenderID: "g1", Message: "Hi", ClientID: "c1", Timestamp: t0,
		})
	}
	f.persister.history = History{Messages: []Message{
		{ID: "db-1", Sender: RoleGuru, Body: "Hi", ClientID: "c1", Timestamp: t0},
	}}

	require.NoError(t, f.session.Open(context.Background()))

	msgs := f.session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "db-1", msgs[0].ID)
}

func TestSeedThenSendScenario(t *testing.T) {
	f := newFixture(t, student, "g1")
	f.persister.history = History{Messages: []Message{{ID: "h1", Sender: RoleGuru, Body: "Hi", Timestamp: t0}}}
	require.NoError(t, f.session.Open(context.Background()))

	sent, err := f.session.Send(context.Background(), "Hello")
	require.NoError(t, err)

	msgs := f.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleGuru, msgs[0].Sender)
	assert.Equal(t, "Hi", msgs[0].Body)
	assert.Equal(t, RoleStudent, msgs[1].Sender)
	assert.Equal(t, "Hello", msgs[1].Body)
	assert.False(t, msgs[1].Delivered)

	f.clock.Add(999 * time.Millisecond)
	assert.False(t, f.message(t, sent.ID).Delivered)

	f.clock.Add(time.Millisecond)
	assert.Eventually(t, func() bool { return f.message(t, sent.ID).Delivered }, time.Second, 5*time.Millisecond)
	assert.False(t, f.message(t, "h1").Delivered)
}

func TestDeliveryLeavesOtherMessagesAlone(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	first, _ := f.session.Send(context.Background(), "one")
	f.clock.Add(500 * time.Millisecond)
	second, _ := f.session.Send(context.Background(), "two")
	f.clock.Add(500 * time.Millisecond)

	assert.Eventually(t, func() bool { return f.message(t, first.ID).Delivered }, time.Second, 5*time.Millisecond)
	assert.False(t, f.message(t, second.ID).Delivered)
}

func TestSendEmitsAndPersists(t *testing.T) {
	f := newFixture(t, guru, "s1")
	require.NoError(t, f.session.Open(context.Background()))

	sent, err := f.session.Send(context.Background(), "  Welcome!  ")
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", sent.Body)

	emits := f.transport.emits(realtime.EventSendMessage)
	require.Len(t, emits, 1)
	var payload realtime.SendMessage
	require.NoError(t, json.Unmarshal(emits[0].Payload, &payload))
	assert.Equal(t, "g1_s1", payload.ChatID)
	assert.Equal(t, "g1", payload.SenderID)
	assert.Equal(t, "Welcome!", payload.Message)
	assert.Equal(t, sent.ClientID, payload.ClientID)

	assert.Eventually(t, func() bool { return f.message(t, sent.ID).Status == StatusPersisted }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.persister.recordCount())
	assert.Equal(t, Record{GuruID: "g1", StudentID: "s1", Sender: RoleGuru, Message: "Welcome!", ClientID: sent.ClientID}, f.persister.records[0])
}

func TestSendRejectsEmptyBody(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	_, err := f.session.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, f.session.Messages())
}

func TestPersistFailureKeepsMessageAndAllowsRetry(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))
	f.persister.setPersistErr(errBackendDown)

	sent, err := f.session.Send(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.message(t, sent.ID).Status == StatusFailed }, time.Second, 5*time.Millisecond)
	assert.Len(t, f.session.Messages(), 1)
	assert.Contains(t, f.notices.kinds(), NoticePersistFailed)

	f.persister.setPersistErr(nil)
	require.NoError(t, f.session.Retry(context.Background(), sent.ID))
	assert.Eventually(t, func() bool { return f.message(t, sent.ID).Status == StatusPersisted }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.persister.recordCount())
}

func TestRetryRejectsMessagesThatDidNotFail(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	sent, _ := f.session.Send(context.Background(), "Hello")
	assert.Eventually(t, func() bool { return f.message(t, sent.ID).Status == StatusPersisted }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.session.Retry(context.Background(), sent.ID), ErrNotRetryable)
	assert.ErrorIs(t, f.session.Retry(context.Background(), "missing"), ErrNotFound)
}

func TestTransportFailureStillShowsMessage(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))
	f.transport.emitErr = errBackendDown

	_, err := f.session.Send(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Len(t, f.session.Messages(), 1)
	assert.Contains(t, f.notices.kinds(), NoticeSendFailed)
}

func TestRemoteMessagesAreAppended(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	payload := realtime.ReceiveMessage{ID: "r1", ChatID: "g1_s1", Sender: "guru", SenderID: "g1", Message: "ping", Timestamp: t0}
	f.transport.deliver(t, realtime.EventReceiveMessage, payload)
	f.transport.deliver(t, realtime.EventReceiveMessage, payload)

	msgs := f.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleGuru, msgs[0].Sender)
	assert.Equal(t, "ping", msgs[0].Body)
}

func TestRelayedEchoOfOwnMessageIsIgnored(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	sent, _ := f.session.Send(context.Background(), "Hello")
	f.transport.deliver(t, realtime.EventReceiveMessage, realtime.ReceiveMessage{
		ID: "srv-1", Sender: "student", SenderID: "s1", Message: "Hello", ClientID: sent.ClientID, Timestamp: t0,
	})

	assert.Len(t, f.session.Messages(), 1)
}

func TestRemoteTypingTogglesIndicator(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	f.transport.deliver(t, realtime.EventUserTyping, nil)
	assert.True(t, f.session.Typing())

	f.clock.Add(DefaultTypingTimeout)
	assert.Eventually(t, func() bool { return !f.session.Typing() }, time.Second, 5*time.Millisecond)
}

func TestOwnTypingEventsAreIgnored(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	f.transport.deliver(t, realtime.EventUserTyping, realtime.UserTyping{ChatID: "g1_s1", UserID: "s1"})
	assert.False(t, f.session.Typing())

	f.transport.deliver(t, realtime.EventUserTyping, realtime.UserTyping{ChatID: "other_room", UserID: "g9"})
	assert.False(t, f.session.Typing())

	f.transport.deliver(t, realtime.EventUserTyping, realtime.UserTyping{ChatID: "g1_s1", UserID: "g1"})
	assert.True(t, f.session.Typing())
}

func TestNotifyTypingEmitsEveryTime(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, f.session.NotifyTyping(context.Background()))
	}
	assert.Len(t, f.transport.emits(realtime.EventTyping), 5)
}

func TestCloseDetachesHandlers(t *testing.T) {
	transport := newMemTransport()
	persister := &fakePersister{}

	// Re-entering the view twice on the same transport must not accumulate handlers.
	for i := 0; i < 2; i++ {
		s, err := NewSession(SessionConfig{Identity: student, CounterpartID: "g1"}, transport, persister,
			WithClock(clock.NewMock()), WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		require.NoError(t, s.Open(context.Background()))
		assert.Equal(t, 1, transport.handlerCount(realtime.EventReceiveMessage))
		assert.Equal(t, 1, transport.handlerCount(realtime.EventUserTyping))
		s.Close()
	}

	assert.Equal(t, 0, transport.handlerCount(realtime.EventReceiveMessage))
	assert.Equal(t, 0, transport.handlerCount(realtime.EventUserTyping))
}

func TestSendAfterCloseFails(t *testing.T) {
	f := newFixture(t, student, "g1")
	require.NoError(t, f.session.Open(context.Background()))
	f.session.Close()

	_, err := f.session.Send(context.Background(), "late")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCloseWaitsForPersistStartedBySend(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t, student, "g1")
		require.NoError(t, f.session.Open(context.Background()))

		var closed atomic.Bool
		var late atomic.Int32
		f.persister.duringPersist = func() {
			if closed.Load() {
				late.Add(1)
			}
		}

		sent := make(chan struct{})
		go func() {
			defer close(sent)
			_, _ = f.session.Send(context.Background(), "racing close")
		}()
		f.session.Close()
		closed.Store(true)
		<-sent

		assert.Zero(t, late.Load(), "persist ran after Close returned")
	}
}

func TestObserverSeesChanges(t *testing.T) {
	changes := make(chan Change, 16)
	f := newFixture(t, student, "g1", WithObserver(func(c Change) { changes <- c }))
	require.NoError(t, f.session.Open(context.Background()))

	f.transport.deliver(t, realtime.EventUserTyping, nil)

	var kinds []ChangeKind
	for len(changes) > 0 {
		kinds = append(kinds, (<-changes).Kind)
	}
	assert.Equal(t, []ChangeKind{ChangeSeeded, ChangeTyping}, kinds)
}
