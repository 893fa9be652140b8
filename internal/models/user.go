package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleGuru    Role = "guru"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r can be chosen at registration. Admins are seeded.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleGuru
}

type User struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Role     Role   `gorm:"type:text;default:'student';not null" json:"role"`
	Bio      string `json:"bio"`

	// Gurus only. Price per hour in paise.
	HourlyRate int64 `gorm:"default:0" json:"hourlyRate"`

	IsBlocked bool   `gorm:"default:false" json:"isBlocked"`
	Password  string `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
