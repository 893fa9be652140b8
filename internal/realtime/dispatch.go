package realtime

import (
	"context"
	"errors"
)

// Dispatcher routes envelopes read from /ws connections.
type Dispatcher struct {
	router *Router
	relay  *Relay
}

func NewDispatcher(router *Router, relay *Relay) *Dispatcher {
	return &Dispatcher{router: router, relay: relay}
}

// Serve attaches conn, runs it until it disconnects, then detaches it.
func (d *Dispatcher) Serve(ctx context.Context, conn *Connection) {
	d.router.Attach(conn)
	defer d.router.Detach(conn)

	conn.Serve(ctx, func(env Envelope) {
		d.Handle(ctx, conn, env)
	})
}

// Handle applies one inbound event. Failures are reported back to the sender
// as an error event; the connection stays open.
func (d *Dispatcher) Handle(ctx context.Context, conn *Connection, env Envelope) {
	var err error
	switch env.Event {
	case EventJoinRoom:
		var in JoinRoom
		if err = env.Decode(&in); err == nil {
			err = d.join(conn, in)
		}
	case EventSendMessage:
		var in SendMessage
		if err = env.Decode(&in); err == nil {
			_, err = d.relay.HandleSend(ctx, conn.Peer, in)
		}
	case EventTyping:
		var in Typing
		if err = env.Decode(&in); err == nil {
			_, err = d.relay.HandleTyping(ctx, conn.Peer, in)
		}
	default:
		err = errors.New("unknown event " + env.Event)
	}

	if err != nil {
		conn.log.Debug().Err(err).Str("event", env.Event).Msg("rejected ws event")
		_ = conn.Emit(EventError, ErrorPayload{Error: err.Error()})
	}
}

func (d *Dispatcher) join(conn *Connection, in JoinRoom) error {
	if err := Authorize(conn.Peer, in.ChatID); err != nil {
		return err
	}
	if !d.router.Join(in.ChatID, conn) {
		return ErrClosed
	}
	conn.log.Debug().Str("room", in.ChatID).Msg("joined room")
	return nil
}
