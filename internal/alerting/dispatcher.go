package alerting

import (
	"context"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChannelTimeout = 10 * time.Second
	defaultMaxConcurrency = 8
)

// AlertSource loads a stored alert with its sensor.
type AlertSource interface {
	GetAlert(ctx context.Context, id string) (*entities.Alert, error)
}

// UserSource loads notification recipients.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*entities.User, error)
}

// AttemptRecorder appends delivery audit records.
type AttemptRecorder interface {
	InsertNotificationAttempt(ctx context.Context, attempt *entities.NotificationAttempt) error
}

// DispatcherConfig tunes delivery fan-out.
type DispatcherConfig struct {
	// ChannelTimeout bounds each channel attempt.
	ChannelTimeout time.Duration
	// MaxConcurrency bounds in-flight attempts per alert.
	MaxConcurrency int
	// Location is the zone used for NotificationData timestamps.
	Location *time.Location
}

// DispatcherDeps are the collaborators of a Dispatcher. Clock and Metrics
// are optional.
type DispatcherDeps struct {
	Alerts   AlertSource
	Users    UserSource
	Attempts AttemptRecorder
	Matcher  *Matcher
	Channels *ChannelRegistry
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Log      logger.Logger
}

// Dispatcher delivers an alert to every matched subscription on every
// method the subscription lists. Each attempt is independent and produces
// exactly one NotificationAttempt record.
type Dispatcher struct {
	DispatcherDeps
	cfg DispatcherConfig
}

// NewDispatcher creates a Dispatcher, filling in defaults for zero config
// values.
func NewDispatcher(deps DispatcherDeps, cfg DispatcherConfig) *Dispatcher {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = defaultChannelTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	return &Dispatcher{DispatcherDeps: deps, cfg: cfg}
}

// DispatchAlert notifies every subscriber of the alert. A missing alert is
// logged and ignored. Delivery failures are recorded, not returned; the
// error result only reports a failure to load the alert or subscriptions.
func (d *Dispatcher) DispatchAlert(ctx context.Context, alertID string) error {
	alert, err := d.Alerts.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			d.Log.Warn("alert not found for dispatch", logger.String("alert_id", alertID))
			return nil
		}
		return err
	}

	subs, err := d.Matcher.Match(ctx, alert)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		d.Log.Debug("no subscriptions matched alert", logger.String("alert_id", alertID))
		return nil
	}

	data := NewNotificationData(alert, d.cfg.Location)

	var g errgroup.Group
	g.SetLimit(d.cfg.MaxConcurrency)
	attempts := 0
	for i := range subs {
		sub := &subs[i]
		user := d.resolveUser(ctx, sub)
		if user == nil {
			continue
		}
		for _, method := range sub.NotificationMethods {
			attempts++
			g.Go(func() error {
				d.attempt(ctx, sub, user, alert, method, data)
				return nil
			})
		}
	}
	_ = g.Wait()

	d.Log.Info("alert dispatched",
		logger.String("alert_id", alertID),
		logger.Int("subscriptions", len(subs)),
		logger.Int("attempts", attempts))
	return nil
}

// resolveUser returns nil when the user is missing or inactive.
func (d *Dispatcher) resolveUser(ctx context.Context, sub *entities.Subscription) *entities.User {
	user, err := d.Users.GetUser(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			d.Log.Warn("subscription owner not found",
				logger.String("subscription_id", sub.ID),
				logger.String("user_id", sub.UserID))
		} else {
			d.Log.Error("failed to load subscription owner",
				logger.String("subscription_id", sub.ID),
				logger.Error(err))
		}
		return nil
	}
	if !user.IsActive {
		d.Log.Debug("skipping inactive user",
			logger.String("subscription_id", sub.ID),
			logger.String("user_id", user.ID))
		return nil
	}
	return user
}

func (d *Dispatcher) attempt(ctx context.Context, sub *entities.Subscription, user *entities.User, alert *entities.Alert, method string, data *NotificationData) {
	start := d.Clock.Now()
	deliverErr := d.deliver(ctx, method, user, data)

	record := &entities.NotificationAttempt{
		UserID:             user.ID,
		AlertID:            alert.ID,
		SubscriptionID:     sub.ID,
		NotificationMethod: method,
	}
	if deliverErr == nil {
		sentAt := d.Clock.Now()
		record.Status = entities.AttemptStatusSent
		record.SentAt = &sentAt
	} else {
		msg := deliverErr.Error()
		record.Status = entities.AttemptStatusFailed
		record.ErrorMessage = &msg
		d.Log.Warn("notification delivery failed",
			logger.String("alert_id", alert.ID),
			logger.String("user_id", user.ID),
			logger.String("method", method),
			logger.Error(deliverErr))
	}

	if d.Metrics != nil {
		d.Metrics.Notifications.WithLabelValues(method, string(record.Status)).Inc()
		d.Metrics.NotificationDuration.WithLabelValues(method).Observe(d.Clock.Since(start).Seconds())
	}

	// The audit row is written even if the caller has gone away.
	if err := d.Attempts.InsertNotificationAttempt(context.WithoutCancel(ctx), record); err != nil {
		d.Log.Error("failed to record notification attempt",
			logger.String("alert_id", alert.ID),
			logger.String("method", method),
			logger.Error(err))
	}
}

// deliver runs one channel with a timeout. Panics become errors.
func (d *Dispatcher) deliver(ctx context.Context, method string, user *entities.User, data *NotificationData) error {
	ch := d.Channels.Resolve(method)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.CapturePanic(r, componentDispatcher)
			}
		}()
		done <- ch.Deliver(ctx, user, data)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return errors.New(errMsgTimedOut)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New(errMsgTimedOut)
		}
		return errors.Newf("delivery cancelled: %v", ctx.Err())
	}
}
