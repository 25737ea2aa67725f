package alerting

import (
	"context"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/detector"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
)

// AlertInserter persists alerts.
type AlertInserter interface {
	InsertAlert(ctx context.Context, alert *entities.Alert) error
}

// AlertDispatcher notifies subscribers of a stored alert.
type AlertDispatcher interface {
	DispatchAlert(ctx context.Context, alertID string) error
}

// Result summarises one Process call.
type Result struct {
	Created []*entities.Alert
	Failed  int
}

// Trigger stores candidate alerts and starts notification for each one.
type Trigger struct {
	alerts     AlertInserter
	dispatcher AlertDispatcher
	bus        *AlertEventBus
	metrics    *observability.Metrics
	log        logger.Logger
}

// NewTrigger creates a Trigger. bus and metrics may be nil.
func NewTrigger(alerts AlertInserter, dispatcher AlertDispatcher, bus *AlertEventBus, metrics *observability.Metrics, log logger.Logger) *Trigger {
	return &Trigger{
		alerts:     alerts,
		dispatcher: dispatcher,
		bus:        bus,
		metrics:    metrics,
		log:        log,
	}
}

// Process persists each candidate independently, then dispatches it. A
// failed insert skips notification for that candidate only; dispatch
// failures never touch the stored alert.
func (t *Trigger) Process(ctx context.Context, sensor *entities.Sensor, candidates []detector.Candidate) Result {
	var res Result
	for _, c := range candidates {
		alert := c.ToAlert()
		if err := t.alerts.InsertAlert(ctx, alert); err != nil {
			res.Failed++
			if t.metrics != nil {
				t.metrics.AlertPersistFailures.Inc()
			}
			t.log.Warn("failed to persist alert",
				logger.String("sensor_id", c.SensorID),
				logger.String("alert_type", string(c.AlertType)),
				logger.Error(err))
			continue
		}
		alert.Sensor = sensor
		res.Created = append(res.Created, alert)

		if t.metrics != nil {
			t.metrics.AlertsCreated.WithLabelValues(string(alert.AlertType), string(alert.Severity)).Inc()
		}
		t.log.Info("alert created",
			logger.String("alert_id", alert.ID),
			logger.String("sensor_id", alert.SensorID),
			logger.String("alert_type", string(alert.AlertType)),
			logger.String("severity", string(alert.Severity)))

		if t.bus != nil {
			t.bus.Publish(&AlertEvent{Alert: alert, Timestamp: alert.CreatedAt})
		}
		t.dispatch(context.WithoutCancel(ctx), alert.ID)
	}
	return res
}

func (t *Trigger) dispatch(ctx context.Context, alertID string) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.CapturePanic(r, componentTrigger)
			t.log.Error("notification dispatch panicked",
				logger.String("alert_id", alertID),
				logger.Error(err))
		}
	}()
	if err := t.dispatcher.DispatchAlert(ctx, alertID); err != nil {
		errors.Capture(err, componentTrigger)
		t.log.Error("failed to dispatch alert notifications",
			logger.String("alert_id", alertID),
			logger.Error(err))
	}
}
