package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/guruqool/guruqool-backend/internal/middleware"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
)

// SocketGateway serves browser clients over Socket.IO. It feeds inbound
// events to the relay and is itself a relay sink for its rooms.
type SocketGateway struct {
	Server *socketio.Server
	relay  *realtime.Relay
	log    zerolog.Logger
}

func checkOrigin(r *http.Request) bool {
	return middleware.OriginAllowed(r.Header.Get("Origin"))
}

func NewSocketGateway(relay *realtime.Relay, log zerolog.Logger) *SocketGateway {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{CheckOrigin: checkOrigin},
			&polling.Transport{CheckOrigin: checkOrigin},
		},
	})

	g := &SocketGateway{Server: server, relay: relay, log: log}
	g.register()
	relay.AddSink(g)
	return g
}

func peerOf(s socketio.Conn) (realtime.Peer, bool) {
	peer, ok := s.Context().(realtime.Peer)
	return peer, ok && peer.UserID != ""
}

func (g *SocketGateway) register() {
	g.Server.OnConnect("/", func(s socketio.Conn) error {
		u := s.URL()
		token := u.Query().Get("token")
		if token == "" {
			g.log.Debug().Str("sid", s.ID()).Msg("Socket connection rejected: no token")
			return fmt.Errorf("authentication required")
		}

		_, user, err := middleware.Authenticate(token)
		if err != nil {
			g.log.Debug().Str("sid", s.ID()).Err(err).Msg("Socket connection rejected")
			return fmt.Errorf("invalid token")
		}

		s.SetContext(realtime.Peer{UserID: user.ID, Role: string(user.Role)})
		g.log.Debug().Str("sid", s.ID()).Str("user_id", user.ID).Msg("Socket authenticated")
		return nil
	})

	g.Server.OnEvent("/", realtime.EventJoinRoom, func(s socketio.Conn, in realtime.JoinRoom) {
		peer, ok := peerOf(s)
		if !ok {
			return
		}
		if err := realtime.Authorize(peer, in.ChatID); err != nil {
			s.Emit(realtime.EventError, realtime.ErrorPayload{Error: err.Error()})
			return
		}
		s.Join(in.ChatID)
	})

	g.Server.OnEvent("/", realtime.EventSendMessage, func(s socketio.Conn, in realtime.SendMessage) {
		peer, ok := peerOf(s)
		if !ok {
			return
		}
		if _, err := g.relay.HandleSend(context.Background(), peer, in); err != nil {
			s.Emit(realtime.EventError, realtime.ErrorPayload{Error: err.Error()})
		}
	})

	g.Server.OnEvent("/", realtime.EventTyping, func(s socketio.Conn, in realtime.Typing) {
		peer, ok := peerOf(s)
		if !ok {
			return
		}
		if _, err := g.relay.HandleTyping(context.Background(), peer, in); err != nil {
			s.Emit(realtime.EventError, realtime.ErrorPayload{Error: err.Error()})
		}
	})

	g.Server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		g.log.Debug().Str("sid", s.ID()).Str("reason", reason).Msg("Socket closed")
	})

	g.Server.OnError("/", func(s socketio.Conn, e error) {
		g.log.Warn().Err(e).Msg("Socket error")
	})
}

// Deliver makes SocketGateway a relay sink.
func (g *SocketGateway) Deliver(room, event string, data json.RawMessage) {
	g.Server.BroadcastToRoom("/", room, event, data)
}

// Serve runs the Socket.IO engine until Close.
func (g *SocketGateway) Serve() {
	if err := g.Server.Serve(); err != nil {
		g.log.Error().Err(err).Msg("Socket.IO server stopped")
	}
}

func (g *SocketGateway) Close() error {
	return g.Server.Close()
}

// Handler mounts the gateway on gin.
func (g *SocketGateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.Server.ServeHTTP(c.Writer, c.Request)
	}
}
