package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func serve(t *testing.T, chain ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })...)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func TestAuthMiddlewareRequiresHeader(t *testing.T) {
	w := serve(t, AuthMiddleware())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization header required", errorBody(t, w))
}

func TestAdminOnly(t *testing.T) {
	asRole := func(role models.Role) gin.HandlerFunc {
		return func(c *gin.Context) { c.Set("role", string(role)) }
	}

	w := serve(t, asRole(models.RoleGuru), AdminOnly())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", errorBody(t, w))

	w = serve(t, asRole(models.RoleAdmin), AdminOnly())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1)

	assert.Equal(t, http.StatusNoContent, serve(t, RateLimitMiddleware(limiter)).Code)

	w := serve(t, RateLimitMiddleware(limiter))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", errorBody(t, w))
}

func TestErrorHandlerRendersAttachedErrors(t *testing.T) {
	w := serve(t, ErrorHandlerMiddleware(), func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Abort()
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorBody(t, w))
}
