package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

func pagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func paginationMeta(page, limit int, total int64) gin.H {
	return gin.H{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": (total + int64(limit) - 1) / int64(limit),
	}
}

// AdminListSessions lists tutoring sessions, optionally filtered by status.
func AdminListSessions(c *gin.Context) {
	page, limit, offset := pagination(c)

	query := database.DB.Model(&models.TutoringSession{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var sessions []models.TutoringSession
	if err := query.Preload("Guru").Preload("Student").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":   sessions,
		"pagination": paginationMeta(page, limit, total),
	})
}

type paymentBucket struct {
	Status  models.SessionStatus `json:"status"`
	Count   int64                `json:"count"`
	Revenue int64                `json:"revenue"`
}

// AdminPaymentsSummary aggregates session count and revenue by status.
func AdminPaymentsSummary(c *gin.Context) {
	var buckets []paymentBucket
	if err := database.DB.Model(&models.TutoringSession{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(price), 0) AS revenue").
		Group("status").
		Order("status").
		Scan(&buckets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarise payments"})
		return
	}

	var totalRevenue int64
	for _, b := range buckets {
		if b.Status == models.SessionPaid || b.Status == models.SessionCompleted {
			totalRevenue += b.Revenue
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"byStatus":     buckets,
		"totalRevenue": totalRevenue,
		"currency":     "INR",
	})
}

// AdminListUsers lists users, optionally filtered by role.
func AdminListUsers(c *gin.Context) {
	page, limit, offset := pagination(c)

	query := database.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": paginationMeta(page, limit, total),
	})
}

func setBlocked(c *gin.Context, blocked bool) {
	userID := c.Param("id")
	if userID == c.GetString("userId") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot change your own account status"})
		return
	}

	result := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_blocked", blocked)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	logger.Info().Str("admin_id", c.GetString("userId")).Str("user_id", userID).Bool("blocked", blocked).Msg("User status changed")
	c.JSON(http.StatusOK, gin.H{"success": true, "isBlocked": blocked})
}

// AdminSuspendUser blocks a user. Their tokens stop authenticating immediately.
func AdminSuspendUser(c *gin.Context) {
	setBlocked(c, true)
}

func AdminUnsuspendUser(c *gin.Context) {
	setBlocked(c, false)
}
