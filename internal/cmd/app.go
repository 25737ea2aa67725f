package cmd

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/datastore"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/detector"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// app is the fully wired pipeline shared by serve and the one-shot commands.
type app struct {
	settings *conf.Settings
	log      logger.Logger
	clock    clockwork.Clock

	db       *gorm.DB
	store    *repository.Store
	metrics  *observability.Metrics
	mailer   *email.Service
	channels *notification.Components
	bus      *alerting.AlertEventBus
	pipeline *alerting.Pipeline
	ingest   *ingest.Service
}

func newApp(settings *conf.Settings, log logger.Logger) (_ *app, err error) {
	a := &app{settings: settings, log: log, clock: clockwork.NewRealClock()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = datastore.Open(&settings.Database, log.With(logger.String("component", "datastore")))
	if err != nil {
		return nil, err
	}
	if err = datastore.Migrate(a.db); err != nil {
		return nil, err
	}
	a.store = repository.NewStore(a.db)

	a.metrics, err = observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	a.mailer, err = email.NewService(email.ConfigFromSettings(&settings.Email), a.metrics, log.With(logger.String("component", "email")))
	if err != nil {
		return nil, fmt.Errorf("failed to create email service: %w", err)
	}

	hub := notification.NewHub(a.metrics, log.With(logger.String("component", "hub")))
	a.channels, err = notification.Setup(&settings.Notification, a.mailer, hub, a.clock, log.With(logger.String("component", "notification")))
	if err != nil {
		return nil, err
	}

	a.bus = alerting.NewAlertEventBus(log.With(logger.String("component", "eventbus")))
	hub.ForwardAlerts(a.bus)

	a.pipeline = alerting.Initialize(a.store, a.channels.Registry, a.bus, a.metrics, a.clock, alerting.DispatcherConfig{
		ChannelTimeout: settings.ChannelTimeout(),
		MaxConcurrency: settings.Notification.MaxConcurrency,
		Location:       settings.Location(),
	}, log)

	a.ingest = ingest.NewService(ingest.Deps{
		Sensors:  a.store.Sensors,
		Readings: a.store.Readings,
		Detector: detector.New(a.store.Readings, log.With(logger.String("component", "detector"))),
		Trigger:  a.pipeline.Trigger,
		Clock:    a.clock,
		Metrics:  a.metrics,
		Log:      log.With(logger.String("component", "ingest")),
	})
	return a, nil
}

func (a *app) ping(ctx context.Context) error {
	return datastore.Ping(ctx, a.db)
}

// close drains queued alert events before releasing the database.
func (a *app) close() {
	if a.bus != nil {
		a.bus.Stop()
	}
	if a.db != nil {
		if err := datastore.Close(a.db); err != nil {
			a.log.Warn("failed to close database", logger.Error(err))
		}
	}
}
