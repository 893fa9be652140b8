package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter) {
	chats := r.Group("/chats")
	chats.Use(middleware.AuthMiddleware())
	{
		chats.GET("", handlers.ListConversations)
		chats.GET("/:guruId/:studentId", handlers.GetChatHistory)
		chats.POST("/messages", middleware.ChatRateLimit(), handlers.PersistMessage)
	}
}
