package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	apperrors "github.com/guruqool/guruqool-backend/pkg/errors"
	"github.com/guruqool/guruqool-backend/pkg/utils"
)

var (
	errUserInactive = errors.New("user not found or inactive")
	errUserBlocked  = errors.New("account is blocked")
	errRevoked      = errors.New("token has been revoked")
)

// Authenticate validates token and loads the active user behind it. The
// realtime transports use it for their ?token= handshake.
func Authenticate(token string) (*utils.Claims, *models.User, error) {
	claims, err := utils.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}
	if database.IsTokenBlacklisted(context.Background(), claims.ID) {
		return nil, nil, errRevoked
	}

	var user models.User
	if err := database.DB.Select("id", "role", "username", "is_blocked").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, nil, errUserInactive
	}
	if user.IsBlocked {
		return nil, nil, errUserBlocked
	}
	return claims, &user, nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, apperrors.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, user, err := Authenticate(parts[1])
		if err != nil {
			AbortWithError(c, apperrors.Unauthorized("Invalid or expired token: "+err.Error()))
			return
		}

		// Role comes from the database so a promotion takes effect without a new token.
		c.Set("userId", user.ID)
		c.Set("role", string(user.Role))
		c.Set("claims", claims)

		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != string(models.RoleAdmin) {
			AbortWithError(c, apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}
