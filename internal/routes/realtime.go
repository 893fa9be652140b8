package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
)

// RegisterRealtimeRoutes mounts Socket.IO for browsers and /ws for Go clients.
// Both authenticate with ?token= and skip the HTTP rate limiter.
func RegisterRealtimeRoutes(r *gin.Engine, gateway *handlers.SocketGateway, d *realtime.Dispatcher, log zerolog.Logger) {
	r.GET("/socket.io/*any", gateway.Handler())
	r.POST("/socket.io/*any", gateway.Handler())
	r.GET("/ws", handlers.WebSocketHandler(d, log))
}
