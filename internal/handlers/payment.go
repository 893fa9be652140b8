package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/middleware"
	"github.com/guruqool/guruqool-backend/internal/models"
	apperrors "github.com/guruqool/guruqool-backend/pkg/errors"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	razorpay "github.com/razorpay/razorpay-go"
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// newOrderClient is swapped in tests.
var newOrderClient = func(keyID, keySecret string) orderCreator {
	return razorpay.NewClient(keyID, keySecret).Order
}

type CreateOrderInput struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type VerifyPaymentInput struct {
	SessionID         string `json:"sessionId" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

func razorpayKeys() (string, string) {
	if config.AppConfig == nil {
		return "", ""
	}
	return config.AppConfig.RazorpayKeyID, config.AppConfig.RazorpayKeySecret
}

func loadPayableSession(sessionID, userID string) (*models.TutoringSession, error) {
	var session models.TutoringSession
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, apperrors.NotFound("Session not found")
	}
	if session.StudentID != userID {
		return nil, apperrors.Forbidden("Only the booking student can pay for this session")
	}
	if session.Status != models.SessionPending {
		return nil, apperrors.Conflict("Session is not awaiting payment")
	}
	return &session, nil
}

// CreateOrder opens a Razorpay order for a pending session.
func CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := loadPayableSession(input.SessionID, c.GetString("userId"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if session.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session is free, no payment needed"})
		return
	}

	keyID, keySecret := razorpayKeys()
	if keyID == "" || keySecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
		return
	}

	body, err := newOrderClient(keyID, keySecret).Create(map[string]interface{}{
		"amount":   session.Price,
		"currency": "INR",
		"receipt":  "session_" + session.ID,
	}, nil)
	if err != nil {
		logger.Error().Err(err).Str("session_id", session.ID).Msg("Razorpay order creation failed")
		middleware.AbortWithError(c, apperrors.ErrPaymentGateway)
		return
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway returned no order id"})
		return
	}

	if err := database.DB.Model(session).Update("order_id", orderID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":  orderID,
		"amount":   session.Price,
		"currency": "INR",
		"keyId":    keyID,
	})
}

// validSignature checks Razorpay's HMAC-SHA256 over "order_id|payment_id".
func validSignature(orderID, paymentID, signature, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPayment marks a session paid once the checkout signature checks out.
func VerifyPayment(c *gin.Context) {
	var input VerifyPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, keySecret := razorpayKeys()
	if keySecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
		return
	}

	if !validSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature, keySecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	session, err := loadPayableSession(input.SessionID, c.GetString("userId"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if session.OrderID != input.RazorpayOrderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order does not belong to this session"})
		return
	}

	err = database.DB.Model(session).Updates(map[string]interface{}{
		"status":     models.SessionPaid,
		"payment_id": input.RazorpayPaymentID,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	logger.Info().Str("session_id", session.ID).Str("payment_id", input.RazorpayPaymentID).Msg("Session paid")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified"})
}
