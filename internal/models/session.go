package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionPaid      SessionStatus = "PAID"
	SessionCancelled SessionStatus = "CANCELLED"
	SessionCompleted SessionStatus = "COMPLETED"
)

// TutoringSession is a booked lesson between a guru and a student.
type TutoringSession struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	GuruID    string `gorm:"index;type:text;not null" json:"guruId"`
	Guru      User   `gorm:"foreignKey:GuruID" json:"guru,omitempty"`
	StudentID string `gorm:"index;type:text;not null" json:"studentId"`
	Student   User   `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	Subject         string    `json:"subject"`
	StartsAt        time.Time `json:"startsAt"`
	DurationMinutes int       `gorm:"default:60" json:"durationMinutes"`

	// Amount in paise, fixed at booking time from the guru's hourly rate.
	Price  int64         `gorm:"not null" json:"price"`
	Status SessionStatus `gorm:"type:text;index;default:'PENDING'" json:"status"`

	OrderID   string `gorm:"index" json:"orderId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (s *TutoringSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
