package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event is one relayed room event as it crosses server instances.
type Event struct {
	Room string          `json:"room"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Broker fans relay events out to every server instance, this one included.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(handler func(Event)) error
	Close() error
}

// LocalBroker delivers in-process. It is enough for a single instance.
type LocalBroker struct {
	mu      sync.RWMutex
	handler func(Event)
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h != nil {
		h(ev)
	}
	return nil
}

func (b *LocalBroker) Subscribe(handler func(Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return fmt.Errorf("local broker: already subscribed")
	}
	b.handler = handler
	return nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.handler = nil
	b.mu.Unlock()
	return nil
}
