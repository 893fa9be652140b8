package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/utils"
)

func publicGuru(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"bio":        u.Bio,
		"hourlyRate": u.HourlyRate,
	}
}

// ListGurus lets students find someone to chat with or book.
// Filters: ?search= &page= &limit=
func ListGurus(c *gin.Context) {
	page, limit, offset := pagination(c)

	query := database.DB.Model(&models.User{}).
		Where("role = ? AND is_blocked = ?", models.RoleGuru, false)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(bio) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var gurus []models.User
	if err := query.Order("username asc").Limit(limit).Offset(offset).Find(&gurus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch gurus"})
		return
	}

	out := make([]gin.H, 0, len(gurus))
	for _, g := range gurus {
		out = append(out, publicGuru(g))
	}

	c.JSON(http.StatusOK, gin.H{
		"gurus":      out,
		"pagination": paginationMeta(page, limit, total),
	})
}

func GetGuru(c *gin.Context) {
	var guru models.User
	if err := database.DB.First(&guru, "id = ? AND role = ?", c.Param("id"), models.RoleGuru).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Guru not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guru": publicGuru(guru)})
}

type UpdateProfileInput struct {
	Name       *string `json:"name"`
	Bio        *string `json:"bio"`
	HourlyRate *int64  `json:"hourlyRate"`
}

// UpdateProfile changes the caller's display fields. Only gurus have a rate.
func UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", c.GetString("userId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = utils.TruncateString(utils.StripHTML(strings.TrimSpace(*input.Name)), 100)
	}
	if input.Bio != nil {
		updates["bio"] = utils.TruncateString(utils.StripHTML(strings.TrimSpace(*input.Bio)), 1000)
	}
	if input.HourlyRate != nil {
		if user.Role != models.RoleGuru {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only gurus have an hourly rate"})
			return
		}
		if *input.HourlyRate < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hourlyRate cannot be negative"})
			return
		}
		updates["hourly_rate"] = *input.HourlyRate
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	database.DB.First(&user, "id = ?", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}
