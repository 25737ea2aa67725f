package entities

import (
	"time"

	"gorm.io/gorm"
)

// AttemptStatus is the outcome of one delivery attempt.
type AttemptStatus string

const (
	AttemptStatusSent   AttemptStatus = "sent"
	AttemptStatusFailed AttemptStatus = "failed"
)

// NotificationAttempt is the audit record of a single channel delivery for one
// (user, alert, subscription) triple. Rows are never updated.
type NotificationAttempt struct {
	ID                 string        `gorm:"primaryKey;size:36" json:"id"`
	UserID             string        `gorm:"size:36;not null;index" json:"user_id"`
	AlertID            string        `gorm:"size:36;not null;index" json:"alert_id"`
	SubscriptionID     string        `gorm:"size:36;not null;index" json:"subscription_id"`
	NotificationMethod string        `gorm:"size:32;not null" json:"notification_method"`
	Status             AttemptStatus `gorm:"size:16;not null;index" json:"status"`
	SentAt             *time.Time    `json:"sent_at,omitempty"`
	ErrorMessage       *string       `gorm:"size:1000" json:"error_message,omitempty"`
	CreatedAt          time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (NotificationAttempt) TableName() string {
	return "user_notifications"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (n *NotificationAttempt) BeforeCreate(_ *gorm.DB) error {
	n.ID = newID(n.ID)
	return nil
}
