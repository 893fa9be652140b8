package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterAuthRoutes(r gin.IRouter) {
	r.POST("/register", handlers.Register)
	r.POST("/login", handlers.Login)
	r.POST("/logout", middleware.AuthMiddleware(), handlers.Logout)
	r.GET("/me", middleware.AuthMiddleware(), handlers.Me)
}
