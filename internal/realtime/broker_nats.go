package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const relaySubject = "guruqool.relay"

// NatsBroker fans events out over a core NATS subject.
type NatsBroker struct {
	nc  *nats.Conn
	log zerolog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNatsBroker connects to url.
func NewNatsBroker(url string, log zerolog.Logger) (*NatsBroker, error) {
	nc, err := nats.Connect(url, nats.Name("guruqool-relay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsBroker{nc: nc, log: log}, nil
}

func (b *NatsBroker) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(relaySubject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (b *NatsBroker) Subscribe(handler func(Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return fmt.Errorf("nats broker: already subscribed")
	}

	sub, err := b.nc.Subscribe(relaySubject, func(m *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			b.log.Warn().Err(err).Msg("dropping malformed relay event")
			return
		}
		handler(ev)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	b.sub = sub
	return nil
}

func (b *NatsBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	b.nc.Close()
	return nil
}
