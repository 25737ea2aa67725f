package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
)

// ReadingsTopic is the subscription filter for sensor readings.
func ReadingsTopic(prefix string) string {
	return prefix + "/sensors/+/readings"
}

// SensorIDFromTopic extracts the sensor ID from <prefix>/sensors/<id>/readings.
func SensorIDFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/sensors/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/readings")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// readingPayload is the JSON body of a reading message.
type readingPayload struct {
	Value        *float64   `json:"value"`
	Unit         string     `json:"unit"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	QualityScore *float64   `json:"quality_score,omitempty"`
}

// ReadingIngester stores a reading and runs the alert pipeline.
type ReadingIngester interface {
	IngestReading(ctx context.Context, in ingest.ReadingInput) (*entities.Reading, error)
}

// Subscriber feeds MQTT reading messages into ingestion.
type Subscriber struct {
	client   Client
	ingester ReadingIngester
	prefix   string
	qos      byte
	metrics  *observability.Metrics
	log      logger.Logger

	ctx context.Context
}

// NewSubscriber creates a subscriber. metrics may be nil.
func NewSubscriber(client Client, ingester ReadingIngester, prefix string, qos byte, metrics *observability.Metrics, log logger.Logger) *Subscriber {
	return &Subscriber{
		client:   client,
		ingester: ingester,
		prefix:   strings.TrimRight(prefix, "/"),
		qos:      qos,
		metrics:  metrics,
		log:      log,
		ctx:      context.Background(),
	}
}

// Start subscribes to the readings topic. Messages are ingested under ctx
// until it is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx
	return s.client.Subscribe(ctx, ReadingsTopic(s.prefix), s.qos, func(topic string, payload []byte) {
		_ = s.HandleMessage(s.ctx, topic, payload)
	})
}

// HandleMessage ingests one message. Invalid messages are logged and
// dropped; the returned error is informational.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	sensorID, ok := SensorIDFromTopic(s.prefix, topic)
	if !ok {
		return s.drop(topic, errors.Newf("unexpected topic %q", topic))
	}

	var body readingPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return s.drop(topic, fmt.Errorf("invalid reading payload: %w", err))
	}

	reading, err := s.ingester.IngestReading(ctx, ingest.ReadingInput{
		SensorID:     sensorID,
		Value:        body.Value,
		Unit:         body.Unit,
		Timestamp:    body.Timestamp,
		QualityScore: body.QualityScore,
	})
	if err != nil {
		return s.drop(topic, err)
	}

	s.count("ingested")
	s.log.Debug("mqtt reading ingested",
		logger.String("sensor_id", sensorID),
		logger.String("reading_id", reading.ID))
	return nil
}

func (s *Subscriber) drop(topic string, err error) error {
	s.count("dropped")
	s.log.Warn("dropping mqtt reading", logger.String("topic", topic), logger.Error(err))
	return err
}

func (s *Subscriber) count(result string) {
	if s.metrics != nil {
		s.metrics.MQTTMessagesReceived.WithLabelValues(result).Inc()
	}
}
