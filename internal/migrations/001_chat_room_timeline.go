package migrations

import "gorm.io/gorm"

// History reads a room in timestamp order: WHERE room_id = ? ORDER BY created_at.
func chatRoomTimelineIndex() Migration {
	return Migration{
		ID:   "001_chat_room_timeline",
		Name: "Index chat messages by room and time",
		Up: func(db *gorm.DB) error {
			return db.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created
				ON chat_messages (room_id, created_at)`).Error
		},
	}
}
