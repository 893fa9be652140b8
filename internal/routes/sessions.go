package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterSessionRoutes(r gin.IRouter) {
	sessions := r.Group("/sessions")
	sessions.Use(middleware.AuthMiddleware())
	{
		sessions.POST("", handlers.BookSession)
		sessions.GET("", handlers.ListMySessions)
	}
}
