package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/middleware"
	"github.com/guruqool/guruqool-backend/internal/models"
	apperrors "github.com/guruqool/guruqool-backend/pkg/errors"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 500

type chatUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type chatHistory struct {
	Messages []models.ChatMessage `json:"messages"`
	Guru     chatUser             `json:"guru"`
	Student  chatUser             `json:"student"`
}

// RoomID names the conversation between a guru and a student.
func RoomID(guruID, studentID string) string {
	return guruID + "_" + studentID
}

func historyCacheKey(roomID string) string {
	return "chat:history:" + roomID
}

func historyCacheTTL() time.Duration {
	if config.AppConfig == nil || config.AppConfig.HistoryCacheTTL <= 0 {
		return 5 * time.Minute
	}
	return config.AppConfig.HistoryCacheTTL
}

// canAccessChat lets the two participants and admins in.
func canAccessChat(c *gin.Context, guruID, studentID string) bool {
	userID := c.GetString("userId")
	return userID == guruID || userID == studentID || c.GetString("role") == string(models.RoleAdmin)
}

// GetChatHistory returns the latest stored messages between a guru and a
// student, oldest first, with both participants' display names.
func GetChatHistory(c *gin.Context) {
	guruID := c.Param("guruId")
	studentID := c.Param("studentId")

	if !canAccessChat(c, guruID, studentID) {
		middleware.AbortWithError(c, apperrors.Forbidden("Not a participant of this chat"))
		return
	}

	ctx := c.Request.Context()
	roomID := RoomID(guruID, studentID)

	var cached chatHistory
	if err := database.CacheGet(ctx, historyCacheKey(roomID), &cached); err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": cached})
		return
	}

	var guru, student models.User
	if err := database.DB.Select("id", "username", "name").First(&guru, "id = ? AND role = ?", guruID, models.RoleGuru).Error; err != nil {
		middleware.AbortWithError(c, apperrors.NotFound("Guru not found"))
		return
	}
	if err := database.DB.Select("id", "username", "name").First(&student, "id = ? AND role = ?", studentID, models.RoleStudent).Error; err != nil {
		middleware.AbortWithError(c, apperrors.NotFound("Student not found"))
		return
	}

	// Newest page first, then flipped so the client appends in order.
	messages := make([]models.ChatMessage, 0)
	if err := database.DB.Where("room_id = ?", roomID).
		Order("created_at desc").
		Order("id desc").
		Limit(defaultHistoryLimit).
		Find(&messages).Error; err != nil {
		logger.Error().Err(err).Str("room", roomID).Msg("Failed to load chat history")
		middleware.AbortWithError(c, apperrors.Internal("Failed to fetch messages"))
		return
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	history := chatHistory{
		Messages: messages,
		Guru:     chatUser{ID: guru.ID, Username: guru.Username, Name: guru.Name},
		Student:  chatUser{ID: student.ID, Username: student.Username, Name: student.Name},
	}

	if err := database.CacheSet(ctx, historyCacheKey(roomID), history, historyCacheTTL()); err != nil && !errors.Is(err, database.ErrCacheDisabled) {
		logger.Warn().Err(err).Str("room", roomID).Msg("Failed to cache chat history")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}

type PersistMessageInput struct {
	GuruID    string      `json:"guruId" binding:"required"`
	StudentID string      `json:"studentId" binding:"required"`
	Sender    models.Role `json:"sender" binding:"required"`
	Message   string      `json:"message" binding:"required"`
	ClientID  string      `json:"clientId"`
}

// PersistMessage stores one message. Requests repeating a clientId return the
// message stored the first time.
func PersistMessage(c *gin.Context) {
	var input PersistMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.AbortWithError(c, apperrors.BadRequest(err.Error()))
		return
	}

	userID := c.GetString("userId")
	switch input.Sender {
	case models.RoleGuru:
		if userID != input.GuruID {
			middleware.AbortWithError(c, apperrors.Forbidden("Cannot send as another guru"))
			return
		}
	case models.RoleStudent:
		if userID != input.StudentID {
			middleware.AbortWithError(c, apperrors.Forbidden("Cannot send as another student"))
			return
		}
	default:
		middleware.AbortWithError(c, apperrors.BadRequest("sender must be student or guru"))
		return
	}

	content, err := SanitizeMessageContent(input.Message)
	if err != nil {
		middleware.AbortWithError(c, apperrors.BadRequest(err.Error()))
		return
	}

	roomID := RoomID(input.GuruID, input.StudentID)
	if input.ClientID != "" {
		if existing, ok := findByClientID(roomID, userID, input.ClientID); ok {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": existing, "duplicate": true})
			return
		}
	}

	msg := models.ChatMessage{
		RoomID:    roomID,
		GuruID:    input.GuruID,
		StudentID: input.StudentID,
		Sender:    input.Sender,
		SenderID:  userID,
		Content:   content,
	}
	if input.ClientID != "" {
		clientID := input.ClientID
		msg.ClientMessageID = &clientID
	}

	if err := database.DB.Create(&msg).Error; err != nil {
		// A concurrent retry may have won the unique index.
		if input.ClientID != "" {
			if existing, ok := findByClientID(roomID, userID, input.ClientID); ok {
				c.JSON(http.StatusOK, gin.H{"success": true, "data": existing, "duplicate": true})
				return
			}
			if clientIDTaken(input.ClientID) {
				middleware.AbortWithError(c, apperrors.Conflict("clientId already used for another message"))
				return
			}
		}
		logger.Error().Err(err).Str("room", msg.RoomID).Msg("Failed to persist chat message")
		middleware.AbortWithError(c, apperrors.Internal("Failed to save message"))
		return
	}

	if err := database.CacheInvalidate(c.Request.Context(), historyCacheKey(msg.RoomID)); err != nil {
		logger.Warn().Err(err).Str("room", msg.RoomID).Msg("Failed to invalidate history cache")
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": msg})
}

// findByClientID only matches the caller's own message in the same room.
func findByClientID(roomID, senderID, clientID string) (models.ChatMessage, bool) {
	var existing models.ChatMessage
	err := database.DB.Where("client_message_id = ? AND room_id = ? AND sender_id = ?", clientID, roomID, senderID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Err(err).Msg("clientId lookup failed")
		}
		return models.ChatMessage{}, false
	}
	return existing, true
}

func clientIDTaken(clientID string) bool {
	var n int64
	database.DB.Model(&models.ChatMessage{}).Where("client_message_id = ?", clientID).Count(&n)
	return n > 0
}

// ListConversations returns the caller's conversations, most recent first.
func ListConversations(c *gin.Context) {
	userID := c.GetString("userId")

	var msgs []models.ChatMessage
	err := database.DB.Select("room_id", "guru_id", "student_id", "created_at").
		Where("guru_id = ? OR student_id = ?", userID, userID).
		Order("created_at desc").
		Find(&msgs).Error
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list conversations")
		middleware.AbortWithError(c, apperrors.Internal("Failed to fetch conversations"))
		return
	}

	type conversation struct {
		ChatID        string    `json:"chatId"`
		GuruID        string    `json:"guruId"`
		StudentID     string    `json:"studentId"`
		LastMessageAt time.Time `json:"lastMessageAt"`
		MessageCount  int       `json:"messageCount"`
	}

	// Rows arrive newest first, so the first row per room carries its latest timestamp.
	index := make(map[string]int)
	convs := make([]conversation, 0)
	for _, m := range msgs {
		if i, ok := index[m.RoomID]; ok {
			convs[i].MessageCount++
			continue
		}
		index[m.RoomID] = len(convs)
		convs = append(convs, conversation{
			ChatID:        m.RoomID,
			GuruID:        m.GuruID,
			StudentID:     m.StudentID,
			LastMessageAt: m.CreatedAt,
			MessageCount:  1,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": convs})
}
