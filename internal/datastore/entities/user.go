package entities

import (
	"time"

	"gorm.io/gorm"
)

// User is a notification recipient. Inactive users receive nothing.
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Email      string    `gorm:"size:255;uniqueIndex" json:"email"`
	Name       string    `gorm:"size:255;default:''" json:"name"`
	Phone      string    `gorm:"size:32;default:''" json:"phone,omitempty"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	APIKeyHash string    `gorm:"size:100;default:''" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	u.ID = newID(u.ID)
	return nil
}
