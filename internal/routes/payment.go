package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/middleware"
)

func RegisterPaymentRoutes(r gin.IRouter) {
	payment := r.Group("/payments")
	payment.Use(middleware.AuthMiddleware(), middleware.PaymentRateLimit())
	{
		payment.POST("/order", handlers.CreateOrder)
		payment.POST("/verify", handlers.VerifyPayment)
	}
}
