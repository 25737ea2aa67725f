package entities

import (
	"time"

	"gorm.io/gorm"
)

// AlertType classifies what an alert is about.
type AlertType string

const (
	AlertTypeStormSurge       AlertType = "storm_surge"
	AlertTypeExtremeWaves     AlertType = "extreme_waves"
	AlertTypeHighWater        AlertType = "high_water"
	AlertTypeEquipmentFailure AlertType = "equipment_failure"
)

// Severity ranks alert urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertTypes lists every valid alert type.
func AlertTypes() []AlertType {
	return []AlertType{AlertTypeStormSurge, AlertTypeExtremeWaves, AlertTypeHighWater, AlertTypeEquipmentFailure}
}

// Severities lists every valid severity in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Alert is a persisted anomaly alert. ID and CreatedAt are assigned by the
// store; ThresholdValue is the boundary crossed and ActualValue the observed
// reading or rate that crossed it.
type Alert struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	SensorID       string     `gorm:"size:36;not null;index" json:"sensor_id"`
	AlertType      AlertType  `gorm:"size:32;not null;index" json:"alert_type"`
	Severity       Severity   `gorm:"size:16;not null;index" json:"severity"`
	Message        string     `gorm:"size:500;not null" json:"message"`
	ThresholdValue float64    `json:"threshold_value"`
	ActualValue    float64    `json:"actual_value"`
	IsResolved     bool       `gorm:"not null;default:false;index" json:"is_resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	Sensor         *Sensor    `gorm:"foreignKey:SensorID;constraint:OnDelete:CASCADE" json:"coastal_sensors,omitempty"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "anomaly_alerts"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (a *Alert) BeforeCreate(_ *gorm.DB) error {
	a.ID = newID(a.ID)
	return nil
}
