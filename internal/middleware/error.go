package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/guruqool/guruqool-backend/pkg/errors"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

// ErrorHandlerMiddleware recovers panics and renders errors attached with c.Error.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal Server Error",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		AbortWithError(c, c.Errors.Last().Err)
	}
}

// AbortWithError answers with the status an AppError carries and 500 for
// anything else.
func AbortWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled request error")
		appErr = apperrors.ErrInternalServer
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"success": false, "error": appErr.Message})
}
