package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/guruqool/guruqool-backend/internal/middleware"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler serves the plain /ws transport used by Go clients. The
// token travels in ?token= because browsers cannot set headers on upgrade.
func WebSocketHandler(d *realtime.Dispatcher, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
			return
		}

		_, user, err := middleware.Authenticate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("ws upgrade failed")
			return
		}

		peer := realtime.Peer{UserID: user.ID, Role: string(user.Role)}
		conn := realtime.NewConnection(peer, ws, log)
		log.Debug().Str("user_id", user.ID).Str("conn_id", conn.ID).Msg("ws connected")

		d.Serve(c.Request.Context(), conn)
	}
}
