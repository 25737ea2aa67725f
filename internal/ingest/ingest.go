// Package ingest validates and stores sensor readings, then runs anomaly
// detection and alerting on them.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/detector"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/coastcare/coastal-alerts/internal/quality"
	"github.com/jonboulle/clockwork"
)

const (
	// MaxBatchSize caps the sensor entries accepted by one batch call.
	MaxBatchSize = 1000

	minValue = -1000
	maxValue = 1000

	componentIngest = "ingest"
)

var (
	ErrSensorUnavailable = errors.New("sensor not found or inactive")
	ErrBatchTooLarge     = errors.New("batch size too large (max 1000 readings)")
	ErrEmptyBatch        = errors.New("invalid batch data format")
)

// ValidationError describes a rejected reading.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ReadingInput is a single reading submitted for ingestion.
type ReadingInput struct {
	SensorID     string     `json:"sensor_id"`
	Value        *float64   `json:"value"`
	Unit         string     `json:"unit"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	QualityScore *float64   `json:"quality_score,omitempty"`
}

// SensorSource looks up sensors.
type SensorSource interface {
	GetSensor(ctx context.Context, id string) (*entities.Sensor, error)
}

// ReadingStore persists readings and serves recent history.
type ReadingStore interface {
	InsertReading(ctx context.Context, reading *entities.Reading) error
	InsertReadings(ctx context.Context, readings []entities.Reading) error
	GetRecentReadings(ctx context.Context, sensorID string, limit int) ([]entities.Reading, error)
}

// AnomalyDetector turns a stored reading into alert candidates.
type AnomalyDetector interface {
	Detect(ctx context.Context, sensor *entities.Sensor, reading *entities.Reading) ([]detector.Candidate, error)
}

// AlertProcessor persists candidates and notifies subscribers.
type AlertProcessor interface {
	Process(ctx context.Context, sensor *entities.Sensor, candidates []detector.Candidate) alerting.Result
}

// Deps are the collaborators of a Service. Clock and Metrics may be nil.
type Deps struct {
	Sensors  SensorSource
	Readings ReadingStore
	Detector AnomalyDetector
	Trigger  AlertProcessor
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Log      logger.Logger
}

// Service is the ingestion entry point shared by HTTP, MQTT and the CLI.
type Service struct {
	sensors  SensorSource
	readings ReadingStore
	detector AnomalyDetector
	trigger  AlertProcessor
	clock    clockwork.Clock
	metrics  *observability.Metrics
	log      logger.Logger
}

// NewService creates an ingestion service.
func NewService(deps Deps) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		sensors:  deps.Sensors,
		readings: deps.Readings,
		detector: deps.Detector,
		trigger:  deps.Trigger,
		clock:    clock,
		metrics:  deps.Metrics,
		log:      deps.Log,
	}
}

// IngestReading validates and stores one reading, then runs detection. Once
// the reading is stored the call succeeds; pipeline failures are only
// logged.
func (s *Service) IngestReading(ctx context.Context, in ReadingInput) (*entities.Reading, error) {
	if err := validateReading(in.SensorID, in.Value, in.Unit, in.QualityScore); err != nil {
		s.count("invalid")
		return nil, err
	}

	sensor, err := s.activeSensor(ctx, in.SensorID)
	if err != nil {
		return nil, err
	}

	reading := &entities.Reading{
		SensorID:     sensor.ID,
		Value:        *in.Value,
		Unit:         in.Unit,
		Timestamp:    s.timestamp(in.Timestamp),
		QualityScore: qualityScore(in.QualityScore),
	}

	s.assessQuality(ctx, sensor, reading)

	if err := s.readings.InsertReading(ctx, reading); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to store sensor reading: %w", err)
	}
	s.count("stored")

	s.runPipeline(ctx, sensor, reading)
	return reading, nil
}

func (s *Service) activeSensor(ctx context.Context, id string) (*entities.Sensor, error) {
	sensor, err := s.sensors.GetSensor(ctx, id)
	switch {
	case errors.Is(err, repository.ErrSensorNotFound):
		s.count("sensor_unavailable")
		return nil, ErrSensorUnavailable
	case err != nil:
		s.count("error")
		return nil, fmt.Errorf("failed to load sensor %s: %w", id, err)
	case !sensor.IsActive():
		s.count("sensor_unavailable")
		return nil, ErrSensorUnavailable
	}
	return sensor, nil
}

func validateReading(sensorID string, value *float64, unit string, score *float64) error {
	if strings.TrimSpace(sensorID) == "" || value == nil || strings.TrimSpace(unit) == "" {
		return &ValidationError{Field: "required", Message: "Missing required fields: sensor_id, value, unit"}
	}
	if *value < minValue || *value > maxValue {
		return &ValidationError{Field: "value", Message: "Value out of acceptable range"}
	}
	if score != nil && (*score < 0 || *score > 1) {
		return &ValidationError{Field: "quality_score", Message: "Quality score must be between 0 and 1"}
	}
	return nil
}

func qualityScore(score *float64) float64 {
	if score == nil {
		return 1.0
	}
	return *score
}

func (s *Service) timestamp(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return s.clock.Now().UTC()
	}
	return ts.UTC()
}

// assessQuality logs readings that fail the data-quality checks. They are
// stored regardless.
func (s *Service) assessQuality(ctx context.Context, sensor *entities.Sensor, reading *entities.Reading) {
	history, err := s.readings.GetRecentReadings(ctx, sensor.ID, detector.HistoryLimit)
	if err != nil {
		s.log.Warn("failed to load history for quality check",
			logger.String("sensor_id", sensor.ID),
			logger.Error(err))
		history = nil
	}
	samples := make([]quality.Sample, 0, len(history))
	for _, h := range history {
		samples = append(samples, quality.Sample{Value: h.Value, Timestamp: h.Timestamp})
	}

	res := quality.Validate(sensor.SensorType, reading.Value, reading.Unit, reading.Timestamp, samples, s.clock.Now())
	if !res.IsValid {
		s.log.Warn("reading failed quality checks",
			logger.String("sensor_id", sensor.ID),
			logger.Float64("value", reading.Value),
			logger.Float64("quality_score", res.QualityScore),
			logger.String("issues", strings.Join(res.Issues, "; ")))
	}
}

// runPipeline detects anomalies for a stored reading and hands candidates to
// the trigger. It returns the number of alerts created.
func (s *Service) runPipeline(ctx context.Context, sensor *entities.Sensor, reading *entities.Reading) (created int) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.CapturePanic(r, componentIngest)
			s.log.Error("alert pipeline panicked",
				logger.String("sensor_id", sensor.ID),
				logger.String("reading_id", reading.ID),
				logger.Error(err))
		}
	}()

	candidates, err := s.detector.Detect(ctx, sensor, reading)
	if err != nil {
		errors.Capture(err, componentIngest)
		s.log.Error("anomaly detection failed",
			logger.String("sensor_id", sensor.ID),
			logger.String("reading_id", reading.ID),
			logger.Error(err))
	}
	if len(candidates) == 0 {
		return 0
	}
	return len(s.trigger.Process(ctx, sensor, candidates).Created)
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.ReadingsIngested.WithLabelValues(result).Inc()
	}
}
