package seeds

import (
	"testing"

	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRunIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seeds?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, Run(db))
	require.NoError(t, Run(db))

	var users, messages int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.ChatMessage{}).Count(&messages)
	assert.EqualValues(t, len(demoUsers), users)
	assert.EqualValues(t, len(demoLines), messages)

	var guru, student models.User
	require.NoError(t, db.First(&guru, "username = ?", "meera_math").Error)
	require.NoError(t, db.First(&student, "username = ?", "kabir").Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(guru.Password), []byte(DemoPassword)))

	var history []models.ChatMessage
	require.NoError(t, db.Where("room_id = ?", handlers.RoomID(guru.ID, student.ID)).Order("created_at asc").Find(&history).Error)
	require.Len(t, history, len(demoLines))
	assert.Equal(t, models.RoleStudent, history[0].Sender)
	assert.Equal(t, guru.ID, history[1].SenderID)
}
