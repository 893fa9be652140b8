package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterUserRoutes(r gin.IRouter) {
	gurus := r.Group("/gurus")
	{
		gurus.GET("", handlers.ListGurus)
		gurus.GET("/:id", handlers.GetGuru)
	}

	profile := r.Group("/users/profile")
	profile.Use(middleware.AuthMiddleware())
	{
		profile.PUT("", handlers.UpdateProfile)
	}
}
