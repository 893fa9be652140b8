package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterAdminRoutes(r gin.IRouter) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.GET("/sessions", handlers.AdminListSessions)
		admin.GET("/payments/summary", handlers.AdminPaymentsSummary)
		admin.GET("/users", handlers.AdminListUsers)
		admin.POST("/users/:id/suspend", handlers.AdminSuspendUser)
		admin.POST("/users/:id/unsuspend", handlers.AdminUnsuspendUser)
	}
}
