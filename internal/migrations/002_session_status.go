package migrations

import "gorm.io/gorm"

// Admin listings and the revenue summary filter and group on status.
func sessionStatusIndex() Migration {
	return Migration{
		ID:        "002_session_status",
		Name:      "Index tutoring sessions by status and time",
		DependsOn: []string{"001_chat_room_timeline"},
		Up: func(db *gorm.DB) error {
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_tutoring_sessions_status_created
					ON tutoring_sessions (status, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_tutoring_sessions_guru_starts
					ON tutoring_sessions (guru_id, starts_at)`,
			}
			for _, s := range stmts {
				if err := db.Exec(s).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
