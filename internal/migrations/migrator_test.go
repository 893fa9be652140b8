package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE chat_messages (id text primary key, room_id text, created_at datetime)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE tutoring_sessions (id text primary key, guru_id text, status text, starts_at datetime, created_at datetime)`).Error)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestMigratorRunsOnce(t *testing.T) {
	db := openDB(t)

	require.NoError(t, NewMigrator(db).Run())
	require.NoError(t, NewMigrator(db).Run())

	var records []MigrationRecord
	require.NoError(t, db.Order("id").Find(&records).Error)
	require.Len(t, records, len(All()))
	assert.Equal(t, "001_chat_room_timeline", records[0].ID)

	assert.True(t, db.Migrator().HasIndex("chat_messages", "idx_chat_messages_room_created"))
	assert.True(t, db.Migrator().HasIndex("tutoring_sessions", "idx_tutoring_sessions_status_created"))
}

func TestMigratorMissingDependency(t *testing.T) {
	db := openDB(t)

	m := &Migrator{db: db, migrations: []Migration{{
		ID:        "009_orphan",
		DependsOn: []string{"008_missing"},
		Up:        func(*gorm.DB) error { return nil },
	}}}

	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "008_missing")
}
