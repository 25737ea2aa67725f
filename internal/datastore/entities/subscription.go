package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Subscription is a user's standing alert filter. SensorID, Location and
// SensorType are OR'd match dimensions where nil means unset; AlertTypes and
// SeverityLevels are allow-lists where empty means all.
type Subscription struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`
	UserID              string     `gorm:"size:36;not null;index" json:"user_id"`
	SensorID            *string    `gorm:"size:36;index" json:"sensor_id,omitempty"`
	Location            *string    `gorm:"size:255;index" json:"location,omitempty"`
	SensorType          *string    `gorm:"size:32;index" json:"sensor_type,omitempty"`
	AlertTypes          StringList `json:"alert_types"`
	SeverityLevels      StringList `json:"severity_levels"`
	NotificationMethods StringList `json:"notification_methods"`
	IsActive            bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	User                *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (Subscription) TableName() string {
	return "user_alert_subscriptions"
}

// BeforeSave assigns an ID on create and normalises blank match dimensions to nil.
func (s *Subscription) BeforeSave(_ *gorm.DB) error {
	s.ID = newID(s.ID)
	s.Normalize()
	return nil
}

// Normalize clears match dimensions that hold only whitespace.
func (s *Subscription) Normalize() {
	s.SensorID = blankToNil(s.SensorID)
	s.Location = blankToNil(s.Location)
	s.SensorType = blankToNil(s.SensorType)
}

// HasMatchDimension reports whether at least one of sensor, location or type is set.
func (s *Subscription) HasMatchDimension() bool {
	return s.SensorID != nil || s.Location != nil || s.SensorType != nil
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}
