package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/config"
)

// AllowedOrigins is shared with the Socket.IO and /ws origin checks.
func AllowedOrigins() []string {
	origins := []string{"http://localhost:5173"}
	if config.AppConfig != nil && config.AppConfig.FrontendURL != "" && config.AppConfig.FrontendURL != origins[0] {
		origins = append(origins, config.AppConfig.FrontendURL)
	}
	return origins
}

// OriginAllowed reports whether origin may open a realtime connection. Non-browser
// clients send no Origin header and are let through; they still need a token.
func OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range AllowedOrigins() {
		if o == origin {
			return true
		}
	}
	return false
}

func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
