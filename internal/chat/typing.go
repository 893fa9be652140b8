package chat

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTypingTimeout is how long the indicator stays on after an event.
const DefaultTypingTimeout = 3 * time.Second

// TypingPolicy decides what repeated typing events do to a pending clear.
type TypingPolicy int

const (
	// TypingExtend restarts the single clear timer on every event.
	TypingExtend TypingPolicy = iota
	// TypingIndependent gives every event its own clear timer; whichever pending
	// timer fires first turns the indicator off, even if newer events arrived.
	TypingIndependent
)

// TypingSignal is the idle/typing state machine behind the typing indicator.
type TypingSignal struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeout  time.Duration
	policy   TypingPolicy
	typing   bool
	stopped  bool
	gen      uint64
	timers   map[uint64]*clock.Timer
	onChange func(bool)
}

func NewTypingSignal(clk clock.Clock, timeout time.Duration, policy TypingPolicy) *TypingSignal {
	if clk == nil {
		clk = clock.New()
	}
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingSignal{
		clock:   clk,
		timeout: timeout,
		policy:  policy,
		timers:  make(map[uint64]*clock.Timer),
	}
}

// OnChange installs a callback for idle<->typing transitions.
func (t *TypingSignal) OnChange(fn func(bool)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Signal records a remote typing event.
func (t *TypingSignal) Signal() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	if t.policy == TypingExtend {
		for id, timer := range t.timers {
			timer.Stop()
			delete(t.timers, id)
		}
	}

	t.gen++
	id := t.gen
	t.timers[id] = t.clock.AfterFunc(t.timeout, func() { t.expire(id) })

	changed := !t.typing
	t.typing = true
	fn := t.onChange
	t.mu.Unlock()

	if changed && fn != nil {
		fn(true)
	}
}

func (t *TypingSignal) expire(id uint64) {
	t.mu.Lock()
	if _, ok := t.timers[id]; !ok {
		// stopped or superseded after it was already scheduled to run
		t.mu.Unlock()
		return
	}
	delete(t.timers, id)

	changed := t.typing
	t.typing = false
	fn := t.onChange
	t.mu.Unlock()

	if changed && fn != nil {
		fn(false)
	}
}

func (t *TypingSignal) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Stop cancels pending clears and ignores further events.
func (t *TypingSignal) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.typing = false
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
