package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveness(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness_CountsTables(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t, withPing(func(context.Context) error { return nil }))
	h.seedSensor(t, "Okha Tide", "Okha, Gujarat", entities.SensorTypeWaterLevel, entities.SensorStatusActive)

	rec := h.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string           `json:"status"`
		Message string           `json:"message"`
		Tables  map[string]int64 `json:"tables"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "All database tables accessible", resp.Message)
	assert.Equal(t, map[string]int64{
		"coastal_sensors": 1,
		"anomaly_alerts":  0,
		"sensor_readings": 0,
	}, resp.Tables)
}

func TestReadiness_PingFailure(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t, withPing(func(context.Context) error { return errors.New("connection refused") }))

	rec := h.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	decode(t, rec, &resp)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Database connection failed", resp["message"])
	assert.Equal(t, "connection refused", resp["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	sensor := h.seedSensor(t, "Dwarka Wind", "Dwarka, Gujarat", entities.SensorTypeWindSpeed, entities.SensorStatusActive)

	rec := h.do(t, http.MethodPost, Prefix+"/ingest/sensor-data", map[string]any{
		"sensor_id": sensor.ID, "value": 12.0, "unit": "mph",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `coastcare_readings_ingested_total{result="stored"} 1`)
}
