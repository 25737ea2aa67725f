package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
)

// Per-sensor batch error messages.
const (
	batchErrUnavailable = "Sensor not found or inactive"
	batchErrInvalid     = "Invalid reading values detected"
	batchErrInsert      = "Failed to insert readings"
	batchErrProcessing  = "Processing failed"
)

// BatchReading is one value inside a batch entry.
type BatchReading struct {
	Value        *float64   `json:"value"`
	Unit         string     `json:"unit"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	QualityScore *float64   `json:"quality_score,omitempty"`
}

// BatchInput groups readings for one sensor.
type BatchInput struct {
	SensorID string         `json:"sensor_id"`
	Readings []BatchReading `json:"readings"`
}

// BatchSensorResult reports a successfully processed entry.
type BatchSensorResult struct {
	SensorID      string `json:"sensor_id"`
	InsertedCount int    `json:"inserted_count"`
	AlertsCreated int    `json:"alerts_created"`
	Success       bool   `json:"success"`
}

// BatchError reports a rejected entry.
type BatchError struct {
	SensorID string `json:"sensor_id"`
	Error    string `json:"error"`
}

// BatchResult summarises a batch call.
type BatchResult struct {
	Processed int                 `json:"processed"`
	Results   []BatchSensorResult `json:"results"`
	Errors    []BatchError        `json:"errors"`
}

// IngestBatch stores each sensor entry independently. A failed entry never
// affects the others. Detection runs once per entry on its last reading.
func (s *Service) IngestBatch(ctx context.Context, batch []BatchInput) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	if len(batch) > MaxBatchSize {
		return BatchResult{}, ErrBatchTooLarge
	}

	res := BatchResult{Results: []BatchSensorResult{}, Errors: []BatchError{}}
	for _, entry := range batch {
		result, msg := s.ingestEntry(ctx, entry)
		if msg != "" {
			res.Errors = append(res.Errors, BatchError{SensorID: entry.SensorID, Error: msg})
			continue
		}
		res.Results = append(res.Results, result)
	}
	res.Processed = len(res.Results)

	s.log.Info("batch ingested",
		logger.Int("entries", len(batch)),
		logger.Int("processed", res.Processed),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}

func (s *Service) ingestEntry(ctx context.Context, entry BatchInput) (BatchSensorResult, string) {
	sensor, err := s.activeSensor(ctx, entry.SensorID)
	switch {
	case errors.Is(err, ErrSensorUnavailable):
		return BatchSensorResult{}, batchErrUnavailable
	case err != nil:
		s.log.Error("batch sensor lookup failed",
			logger.String("sensor_id", entry.SensorID),
			logger.Error(err))
		return BatchSensorResult{}, batchErrProcessing
	}

	if len(entry.Readings) == 0 {
		s.count("invalid")
		return BatchSensorResult{}, batchErrInvalid
	}
	readings := make([]entities.Reading, 0, len(entry.Readings))
	for _, r := range entry.Readings {
		if validateReading(entry.SensorID, r.Value, r.Unit, r.QualityScore) != nil {
			s.count("invalid")
			return BatchSensorResult{}, batchErrInvalid
		}
		readings = append(readings, entities.Reading{
			SensorID:     sensor.ID,
			Value:        *r.Value,
			Unit:         strings.TrimSpace(r.Unit),
			Timestamp:    s.timestamp(r.Timestamp),
			QualityScore: qualityScore(r.QualityScore),
		})
	}

	if err := s.readings.InsertReadings(ctx, readings); err != nil {
		s.count("error")
		s.log.Error("batch insert failed",
			logger.String("sensor_id", entry.SensorID),
			logger.Int("readings", len(readings)),
			logger.Error(err))
		return BatchSensorResult{}, batchErrInsert
	}
	if s.metrics != nil {
		s.metrics.ReadingsIngested.WithLabelValues("stored").Add(float64(len(readings)))
	}

	latest := &readings[len(readings)-1]
	created := s.runPipeline(ctx, sensor, latest)
	return BatchSensorResult{
		SensorID:      entry.SensorID,
		InsertedCount: len(readings),
		AlertsCreated: created,
		Success:       true,
	}, ""
}
