package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is one persisted message between a guru and a student. The json
// tags match the wire message the chat clients append directly.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	RoomID    string    `gorm:"index;type:text;not null" json:"chatId"`
	GuruID    string    `gorm:"index;type:text;not null" json:"-"`
	StudentID string    `gorm:"index;type:text;not null" json:"-"`
	Sender    Role      `gorm:"type:text;not null" json:"sender"`
	SenderID  string    `gorm:"type:text" json:"senderId,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"timestamp"`

	// Client-generated idempotency key. Retried persists carry the same key.
	ClientMessageID *string `gorm:"uniqueIndex;type:text" json:"clientId,omitempty"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
