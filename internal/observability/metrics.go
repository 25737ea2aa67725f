// Package observability holds the Prometheus collectors for the pipeline.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coastcare"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	registry *prometheus.Registry

	ReadingsIngested     *prometheus.CounterVec   // labels: result={stored,invalid,sensor_unavailable,error}
	AlertsCreated        *prometheus.CounterVec   // labels: alert_type, severity
	AlertPersistFailures prometheus.Counter
	Notifications        *prometheus.CounterVec   // labels: method, status={sent,failed}
	NotificationDuration *prometheus.HistogramVec // labels: method
	WebsocketClients     prometheus.Gauge
	MQTTMessagesReceived *prometheus.CounterVec   // labels: result={ingested,dropped}
	MQTTAlertsPublished  *prometheus.CounterVec   // labels: outcome={success,error}
	EmailSends           *prometheus.CounterVec   // labels: template={alert,welcome}, outcome={success,error,unconfigured}
}

func newCollectors() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings received by outcome.",
		}, []string{"result"}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts persisted by type and severity.",
		}, []string{"alert_type", "severity"}),
		AlertPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_persist_failures_total",
			Help:      "Candidate alerts that could not be stored.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by method and status.",
		}, []string{"method", "status"}),
		NotificationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Time spent in a single channel delivery.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected alert stream clients.",
		}),
		MQTTMessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_messages_received_total",
			Help:      "MQTT reading messages by result.",
		}, []string{"result"}),
		MQTTAlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_alerts_published_total",
			Help:      "Alerts published to MQTT by outcome.",
		}, []string{"outcome"}),
		EmailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_sends_total",
			Help:      "Email send attempts by template and outcome.",
		}, []string{"template", "outcome"}),
	}
}

func (m *Metrics) all() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReadingsIngested,
		m.AlertsCreated,
		m.AlertPersistFailures,
		m.Notifications,
		m.NotificationDuration,
		m.WebsocketClients,
		m.MQTTMessagesReceived,
		m.MQTTAlertsPublished,
		m.EmailSends,
	}
}

// NewMetrics creates all service metrics on a dedicated registry that also
// carries the Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	m := newCollectors()
	m.registry = prometheus.NewRegistry()

	cs := append(m.all(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// NewMetricsForTesting creates Metrics on a fresh registry without runtime
// collectors, so tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	m := newCollectors()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.all()...)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
