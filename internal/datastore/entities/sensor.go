package entities

import (
	"time"

	"gorm.io/gorm"
)

// SensorType identifies the quantity a sensor measures.
type SensorType string

const (
	SensorTypeWindSpeed   SensorType = "wind_speed"
	SensorTypeTemperature SensorType = "temperature"
	SensorTypeWaveHeight  SensorType = "wave_height"
	SensorTypeWaterLevel  SensorType = "water_level"
)

// SensorStatus is the provisioning lifecycle state. Only active sensors are
// accepted for ingestion.
type SensorStatus string

const (
	SensorStatusActive      SensorStatus = "active"
	SensorStatusInactive    SensorStatus = "inactive"
	SensorStatusMaintenance SensorStatus = "maintenance"
)

// Sensor is a provisioned coastal sensor.
type Sensor struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	Name       string       `gorm:"size:255;not null" json:"name"`
	Location   string       `gorm:"size:255;not null;index" json:"location"`
	Latitude   float64      `gorm:"not null;default:0" json:"latitude"`
	Longitude  float64      `gorm:"not null;default:0" json:"longitude"`
	SensorType SensorType   `gorm:"size:32;not null;index" json:"sensor_type"`
	Status     SensorStatus `gorm:"size:16;not null;default:'active';index" json:"status"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Sensor) TableName() string {
	return "coastal_sensors"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (s *Sensor) BeforeCreate(_ *gorm.DB) error {
	s.ID = newID(s.ID)
	return nil
}

// IsActive reports whether the sensor participates in detection.
func (s *Sensor) IsActive() bool {
	return s.Status == SensorStatusActive
}
