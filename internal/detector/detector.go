// Package detector evaluates sensor readings against absolute and
// rate-of-change thresholds and produces candidate alerts.
package detector

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/logger"
)

const (
	// HistoryLimit is the number of recent readings fetched for rate evaluation.
	HistoryLimit = 5

	// MinRateInterval is the smallest gap between compared readings for which
	// a rate is computed.
	MinRateInterval = 6 * time.Minute
)

// ReadingSource supplies recent sensor history, newest first.
type ReadingSource interface {
	GetRecentReadings(ctx context.Context, sensorID string, limit int) ([]entities.Reading, error)
}

// Candidate is an alert that has not been stored yet.
type Candidate struct {
	SensorID       string
	AlertType      entities.AlertType
	Severity       entities.Severity
	Message        string
	ThresholdValue float64
	ActualValue    float64
}

// ToAlert converts the candidate into an unsaved alert entity.
func (c Candidate) ToAlert() *entities.Alert {
	return &entities.Alert{
		SensorID:       c.SensorID,
		AlertType:      c.AlertType,
		Severity:       c.Severity,
		Message:        c.Message,
		ThresholdValue: c.ThresholdValue,
		ActualValue:    c.ActualValue,
	}
}

// Detector turns readings into candidate alerts.
type Detector struct {
	readings ReadingSource
	log      logger.Logger
}

// New creates a Detector reading history from readings.
func New(readings ReadingSource, log logger.Logger) *Detector {
	return &Detector{readings: readings, log: log}
}

// Detect runs threshold and rate-of-change evaluation for one reading. The
// two are independent and each yields at most one candidate. If history
// cannot be read the threshold candidate is still returned alongside the
// error.
func (d *Detector) Detect(ctx context.Context, sensor *entities.Sensor, reading *entities.Reading) ([]Candidate, error) {
	if !sensor.IsActive() {
		d.log.Debug("skipping detection for inactive sensor",
			logger.String("sensor_id", sensor.ID),
			logger.String("status", string(sensor.Status)))
		return nil, nil
	}

	var candidates []Candidate
	if c, ok := EvaluateThresholds(sensor, reading); ok {
		candidates = append(candidates, c)
	}

	if _, known := profiles[sensor.SensorType]; !known {
		return candidates, nil
	}

	history, err := d.readings.GetRecentReadings(ctx, sensor.ID, HistoryLimit)
	if err != nil {
		return candidates, fmt.Errorf("failed to load history for sensor %s: %w", sensor.ID, err)
	}
	if c, ok := EvaluateRate(sensor, reading, history); ok {
		candidates = append(candidates, c)
	}

	if len(candidates) > 0 {
		d.log.Info("anomalies detected",
			logger.String("sensor_id", sensor.ID),
			logger.String("sensor_type", string(sensor.SensorType)),
			logger.Float64("value", reading.Value),
			logger.Int("count", len(candidates)))
	}
	return candidates, nil
}

// EvaluateThresholds returns the highest absolute band the reading falls in.
func EvaluateThresholds(sensor *entities.Sensor, reading *entities.Reading) (Candidate, bool) {
	p, ok := profiles[sensor.SensorType]
	if !ok {
		return Candidate{}, false
	}

	for _, b := range p.bands {
		bound := b.bound(p.thresholds)
		if !compare(b.operator, reading.Value, bound) {
			continue
		}
		return Candidate{
			SensorID:       sensor.ID,
			AlertType:      p.alertType,
			Severity:       b.severity,
			Message:        fmt.Sprintf("%s: %s%s", b.prefix, formatValue(reading.Value), reading.Unit),
			ThresholdValue: bound,
			ActualValue:    reading.Value,
		}, true
	}
	return Candidate{}, false
}

// EvaluateRate compares the reading with history[1]. history[0] is skipped
// because it is normally the reading under evaluation, already stored.
func EvaluateRate(sensor *entities.Sensor, reading *entities.Reading, history []entities.Reading) (Candidate, bool) {
	p, ok := profiles[sensor.SensorType]
	if !ok || len(history) < 2 {
		return Candidate{}, false
	}

	previous := history[1]
	elapsed := reading.Timestamp.Sub(previous.Timestamp)
	if elapsed < MinRateInterval {
		return Candidate{}, false
	}

	rate := (reading.Value - previous.Value) / elapsed.Hours()

	var (
		severity  entities.Severity
		threshold float64
		label     string
	)
	switch magnitude := math.Abs(rate); {
	case magnitude >= p.rate.Critical:
		severity, threshold, label = entities.SeverityHigh, p.rate.Critical, "Rapid change detected"
	case magnitude >= p.rate.High:
		severity, threshold, label = entities.SeverityMedium, p.rate.High, "Unusual change detected"
	default:
		return Candidate{}, false
	}

	return Candidate{
		SensorID:       sensor.ID,
		AlertType:      entities.AlertTypeEquipmentFailure,
		Severity:       severity,
		Message:        fmt.Sprintf("%s: %.2f%s/hour", label, rate, reading.Unit),
		ThresholdValue: threshold,
		ActualValue:    rate,
	}, true
}

// formatValue renders a reading value in its shortest exact form.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
