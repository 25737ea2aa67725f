package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
)

const publishTimeout = 5 * time.Second

// AlertTopic is where alerts of one severity are published.
func AlertTopic(prefix string, severity entities.Severity) string {
	return prefix + "/alerts/" + string(severity)
}

// AlertMessage is the JSON body of a published alert.
type AlertMessage struct {
	ID             string    `json:"id"`
	SensorID       string    `json:"sensor_id"`
	SensorName     string    `json:"sensor_name,omitempty"`
	Location       string    `json:"location,omitempty"`
	SensorType     string    `json:"sensor_type,omitempty"`
	AlertType      string    `json:"alert_type"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	ThresholdValue float64   `json:"threshold_value"`
	ActualValue    float64   `json:"actual_value"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAlertMessage flattens an alert and its preloaded sensor.
func NewAlertMessage(alert *entities.Alert) AlertMessage {
	msg := AlertMessage{
		ID:             alert.ID,
		SensorID:       alert.SensorID,
		AlertType:      string(alert.AlertType),
		Severity:       string(alert.Severity),
		Message:        alert.Message,
		ThresholdValue: alert.ThresholdValue,
		ActualValue:    alert.ActualValue,
		CreatedAt:      alert.CreatedAt,
	}
	if s := alert.Sensor; s != nil {
		msg.SensorName = s.Name
		msg.Location = s.Location
		msg.SensorType = string(s.SensorType)
	}
	return msg
}

// Publisher mirrors persisted alerts onto the broker.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	metrics *observability.Metrics
	log     logger.Logger
}

// NewPublisher creates a publisher. metrics may be nil.
func NewPublisher(client Client, prefix string, qos byte, metrics *observability.Metrics, log logger.Logger) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  strings.TrimRight(prefix, "/"),
		qos:     qos,
		metrics: metrics,
		log:     log,
	}
}

// Attach publishes every alert announced on bus.
func (p *Publisher) Attach(bus *alerting.AlertEventBus) {
	bus.Subscribe(func(event *alerting.AlertEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.PublishAlert(ctx, event.Alert); err != nil {
			p.log.Warn("failed to publish alert to mqtt",
				logger.String("alert_id", event.Alert.ID),
				logger.Error(err))
		}
	})
}

// PublishAlert sends one alert, non-retained.
func (p *Publisher) PublishAlert(ctx context.Context, alert *entities.Alert) error {
	payload, err := json.Marshal(NewAlertMessage(alert))
	if err != nil {
		p.count("error")
		return fmt.Errorf("failed to encode alert %s: %w", alert.ID, err)
	}
	if err := p.client.Publish(ctx, AlertTopic(p.prefix, alert.Severity), p.qos, payload); err != nil {
		p.count("error")
		return err
	}
	p.count("success")
	return nil
}

func (p *Publisher) count(outcome string) {
	if p.metrics != nil {
		p.metrics.MQTTAlertsPublished.WithLabelValues(outcome).Inc()
	}
}
