package alerting

import (
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/detector"
)

// NotificationData is the channel-agnostic payload rendered by every channel.
type NotificationData struct {
	AlertID        string  `json:"alert_id"`
	Location       string  `json:"location"`
	SensorName     string  `json:"sensor_name"`
	SensorType     string  `json:"sensor_type"`
	AlertType      string  `json:"alert_type"`
	Severity       string  `json:"severity"`
	Message        string  `json:"message"`
	Timestamp      string  `json:"timestamp"`
	ThresholdValue float64 `json:"threshold_value"`
	ActualValue    float64 `json:"actual_value"`
	Unit           string  `json:"unit"`
}

// UnitForSensorType returns the display unit for notification payloads.
func UnitForSensorType(t entities.SensorType) string {
	return detector.UnitFor(t)
}

// NewNotificationData builds the payload for an alert. The alert's sensor
// should be preloaded; without it the sensor fields are left empty. loc
// selects the zone for the formatted timestamp, nil meaning UTC.
func NewNotificationData(alert *entities.Alert, loc *time.Location) *NotificationData {
	if loc == nil {
		loc = time.UTC
	}
	data := &NotificationData{
		AlertID:        alert.ID,
		AlertType:      string(alert.AlertType),
		Severity:       string(alert.Severity),
		Message:        alert.Message,
		Timestamp:      FormatTimestamp(alert.CreatedAt, loc),
		ThresholdValue: alert.ThresholdValue,
		ActualValue:    alert.ActualValue,
	}
	if s := alert.Sensor; s != nil {
		data.Location = s.Location
		data.SensorName = s.Name
		data.SensorType = string(s.SensorType)
		data.Unit = UnitForSensorType(s.SensorType)
	}
	return data
}

// FormatTimestamp renders t the way notifications display alert times.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}
