package notification

import (
	"context"
	"io"
	"sync"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func sampleData() *alerting.NotificationData {
	return &alerting.NotificationData{
		AlertID:        "alert-1",
		Location:       "Dwarka, Gujarat",
		SensorName:     "Dwarka Wind 01",
		SensorType:     "wind_speed",
		AlertType:      "storm_surge",
		Severity:       "high",
		Message:        "High wind speeds detected: 36mph",
		Timestamp:      "5/10/2026, 12:00:00 PM",
		ThresholdValue: 35,
		ActualValue:    36,
		Unit:           "mph",
	}
}

type fakeMailer struct {
	ok   bool
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) SendAlertEmail(_ context.Context, to string, _ *alerting.NotificationData) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.ok
}

type recordingProvider struct {
	mu   sync.Mutex
	err  error
	sent []*Notification
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}
