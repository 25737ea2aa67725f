package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// TestAlertJSONKeys verifies Alert serializes with the snake_case keys the
// dashboard and websocket clients read.
func TestAlertJSONKeys(t *testing.T) {
	t.Parallel()

	resolvedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alert := Alert{
		ID:             "a-1",
		SensorID:       "s-1",
		AlertType:      AlertTypeStormSurge,
		Severity:       SeverityHigh,
		Message:        "High wind speeds detected: 36mph",
		ThresholdValue: 35,
		ActualValue:    36,
		IsResolved:     true,
		ResolvedAt:     &resolvedAt,
		CreatedAt:      time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		Sensor:         &Sensor{ID: "s-1", Name: "Dwarka Wind", Location: "Dwarka, Gujarat"},
	}

	m := toMap(t, alert)
	for _, key := range []string{
		"id", "sensor_id", "alert_type", "severity", "message",
		"threshold_value", "actual_value", "is_resolved", "resolved_at",
		"created_at", "coastal_sensors",
	} {
		assert.Contains(t, m, key, "JSON should contain snake_case key %q", key)
	}
	for _, key := range []string{"ID", "SensorID", "AlertType", "ThresholdValue", "Sensor"} {
		assert.NotContains(t, m, key, "JSON should not contain PascalCase key %q", key)
	}

	sensor, ok := m["coastal_sensors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Dwarka, Gujarat", sensor["location"])
}

func TestAlertJSON_OmitsUnsetResolution(t *testing.T) {
	t.Parallel()
	m := toMap(t, Alert{ID: "a-2"})
	assert.NotContains(t, m, "resolved_at")
	assert.NotContains(t, m, "coastal_sensors")
}

func TestSubscriptionJSONKeys(t *testing.T) {
	t.Parallel()

	loc := "Dwarka, Gujarat"
	sub := Subscription{
		ID:                  "sub-1",
		UserID:              "u-1",
		Location:            &loc,
		AlertTypes:          StringList{},
		SeverityLevels:      StringList{"critical", "high"},
		NotificationMethods: StringList{"email", "web"},
		IsActive:            true,
	}

	m := toMap(t, sub)
	assert.Equal(t, "Dwarka, Gujarat", m["location"])
	assert.NotContains(t, m, "sensor_id", "unset dimensions are omitted")
	assert.NotContains(t, m, "sensor_type")
	assert.Equal(t, []any{}, m["alert_types"])
	assert.Equal(t, []any{"critical", "high"}, m["severity_levels"])
	assert.Equal(t, []any{"email", "web"}, m["notification_methods"])
}

func TestUserJSON_HidesAPIKeyHash(t *testing.T) {
	t.Parallel()
	m := toMap(t, User{ID: "u-1", Email: "a@example.com", APIKeyHash: "$2a$10$hash"})
	assert.NotContains(t, m, "APIKeyHash")
	assert.NotContains(t, m, "api_key_hash")
	assert.Equal(t, "a@example.com", m["email"])
}
