package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSessions(t *testing.T) {
	t.Helper()
	seedGuru(t, "g1", 100000)
	seedUser(t, "s1", "student_one", models.RoleStudent)
	now := time.Now()
	for _, s := range []models.TutoringSession{
		{GuruID: "g1", StudentID: "s1", Price: 1000, Status: models.SessionPaid, StartsAt: now},
		{GuruID: "g1", StudentID: "s1", Price: 2500, Status: models.SessionPaid, StartsAt: now},
		{GuruID: "g1", StudentID: "s1", Price: 4000, Status: models.SessionPending, StartsAt: now},
		{GuruID: "g1", StudentID: "s1", Price: 700, Status: models.SessionCompleted, StartsAt: now},
	} {
		s := s
		require.NoError(t, database.DB.Create(&s).Error)
	}
}

func TestAdminListSessions(t *testing.T) {
	SetupTestDB(t)
	seedSessions(t)
	admin := &caller{"admin", models.RoleAdmin}

	var resp struct {
		Sessions   []models.TutoringSession `json:"sessions"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"totalPages"`
		} `json:"pagination"`
	}

	w := perform(t, AdminListSessions, http.MethodGet, "/api/admin/sessions?status=PAID", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Sessions, 2)
	assert.EqualValues(t, 2, resp.Pagination.Total)

	w = perform(t, AdminListSessions, http.MethodGet, "/api/admin/sessions?page=2&limit=3", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Sessions, 1)
	assert.EqualValues(t, 4, resp.Pagination.Total)
	assert.EqualValues(t, 2, resp.Pagination.TotalPages)
}

func TestAdminPaymentsSummary(t *testing.T) {
	SetupTestDB(t)
	seedSessions(t)

	w := perform(t, AdminPaymentsSummary, http.MethodGet, "/api/admin/payments/summary", nil, &caller{"admin", models.RoleAdmin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ByStatus     []paymentBucket `json:"byStatus"`
		TotalRevenue int64           `json:"totalRevenue"`
	}
	decode(t, w, &resp)
	assert.EqualValues(t, 4200, resp.TotalRevenue)

	byStatus := map[models.SessionStatus]paymentBucket{}
	for _, b := range resp.ByStatus {
		byStatus[b.Status] = b
	}
	assert.EqualValues(t, 2, byStatus[models.SessionPaid].Count)
	assert.EqualValues(t, 3500, byStatus[models.SessionPaid].Revenue)
	assert.EqualValues(t, 4000, byStatus[models.SessionPending].Revenue)
}

func TestAdminSuspendUser(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "s1", "student_one", models.RoleStudent)
	admin := &caller{"admin", models.RoleAdmin}

	w := perform(t, AdminSuspendUser, http.MethodPost, "/", nil, admin, gin.Param{Key: "id", Value: "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, database.DB.First(&user, "id = ?", "s1").Error)
	assert.True(t, user.IsBlocked)

	w = perform(t, AdminUnsuspendUser, http.MethodPost, "/", nil, admin, gin.Param{Key: "id", Value: "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, database.DB.First(&user, "id = ?", "s1").Error)
	assert.False(t, user.IsBlocked)

	assert.Equal(t, http.StatusNotFound, perform(t, AdminSuspendUser, http.MethodPost, "/", nil, admin, gin.Param{Key: "id", Value: "ghost"}).Code)
	assert.Equal(t, http.StatusBadRequest, perform(t, AdminSuspendUser, http.MethodPost, "/", nil, admin, gin.Param{Key: "id", Value: "admin"}).Code)
}
