package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

// Realtime is the relay plus both client-facing endpoints that share it.
type Realtime struct {
	Relay      *realtime.Relay
	WS         *realtime.Router
	Dispatcher *realtime.Dispatcher
	Gateway    *handlers.SocketGateway
}

// NewRealtime wires one relay to the /ws router and the Socket.IO gateway.
// The caller starts Gateway.Serve.
func NewRealtime(broker realtime.Broker, typingThrottle time.Duration) (*Realtime, error) {
	relay, err := realtime.NewRelay(broker, logger.Component("relay"),
		realtime.WithTypingThrottle(typingThrottle),
		realtime.WithSanitizer(handlers.SanitizeMessageContent),
	)
	if err != nil {
		return nil, err
	}

	ws := realtime.NewRouter(logger.Component("ws"))
	relay.AddSink(ws)

	return &Realtime{
		Relay:      relay,
		WS:         ws,
		Dispatcher: realtime.NewDispatcher(ws, relay),
		Gateway:    handlers.NewSocketGateway(relay, logger.Component("socketio")),
	}, nil
}

// NewEngine builds the HTTP surface: health, realtime endpoints and /api.
func NewEngine(rt *Realtime) *gin.Engine {
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", handlers.HealthCheck)
	RegisterRealtimeRoutes(r, rt.Gateway, rt.Dispatcher, logger.Component("ws"))

	api := r.Group("/api")
	api.Use(middleware.GeneralRateLimit())
	{
		auth := api.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		RegisterAuthRoutes(auth)

		RegisterUserRoutes(api)
		RegisterChatRoutes(api)
		RegisterSessionRoutes(api)
		RegisterPaymentRoutes(api)
		RegisterAdminRoutes(api)
	}

	return r
}
