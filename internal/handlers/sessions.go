package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"github.com/guruqool/guruqool-backend/pkg/utils"
)

type BookSessionInput struct {
	GuruID          string    `json:"guruId" binding:"required"`
	Subject         string    `json:"subject" binding:"required"`
	StartsAt        time.Time `json:"startsAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes"`
}

// BookSession lets a student book a guru. Price is fixed from the guru's
// current hourly rate.
func BookSession(c *gin.Context) {
	if c.GetString("role") != string(models.RoleStudent) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only students can book sessions"})
		return
	}

	var input BookSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.DurationMinutes == 0 {
		input.DurationMinutes = 60
	}
	if input.DurationMinutes < 15 || input.DurationMinutes > 240 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "durationMinutes must be between 15 and 240"})
		return
	}
	if !input.StartsAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startsAt must be in the future"})
		return
	}

	var guru models.User
	if err := database.DB.First(&guru, "id = ? AND role = ?", input.GuruID, models.RoleGuru).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Guru not found"})
		return
	}
	if guru.IsBlocked {
		c.JSON(http.StatusConflict, gin.H{"error": "Guru is not accepting sessions"})
		return
	}

	session := models.TutoringSession{
		GuruID:          guru.ID,
		StudentID:       c.GetString("userId"),
		Subject:         utils.TruncateString(utils.StripHTML(strings.TrimSpace(input.Subject)), 200),
		StartsAt:        input.StartsAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		Price:           guru.HourlyRate * int64(input.DurationMinutes) / 60,
		Status:          models.SessionPending,
	}

	if err := database.DB.Create(&session).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to book session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book session"})
		return
	}

	logger.Info().Str("session_id", session.ID).Str("guru_id", guru.ID).Msg("Session booked")
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// ListMySessions returns sessions where the caller is the guru or the student.
func ListMySessions(c *gin.Context) {
	userID := c.GetString("userId")

	var sessions []models.TutoringSession
	err := database.DB.
		Preload("Guru").
		Preload("Student").
		Where("guru_id = ? OR student_id = ?", userID, userID).
		Order("starts_at desc").
		Find(&sessions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
