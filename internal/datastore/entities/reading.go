package entities

import (
	"time"

	"gorm.io/gorm"
)

// Reading is a single timestamped measurement. Readings are append-only.
type Reading struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SensorID     string    `gorm:"size:36;not null;index:idx_readings_sensor_time,priority:1" json:"sensor_id"`
	Value        float64   `gorm:"not null" json:"value"`
	Unit         string    `gorm:"size:32;not null" json:"unit"`
	Timestamp    time.Time `gorm:"not null;index:idx_readings_sensor_time,priority:2" json:"timestamp"`
	QualityScore float64   `gorm:"not null;default:1" json:"quality_score"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Sensor       *Sensor   `gorm:"foreignKey:SensorID;constraint:OnDelete:CASCADE" json:"coastal_sensors,omitempty"`
}

// TableName returns the table name for GORM.
func (Reading) TableName() string {
	return "sensor_readings"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (r *Reading) BeforeCreate(_ *gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}
