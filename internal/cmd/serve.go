package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coastcare/coastal-alerts/internal/api"
	apiv2 "github.com/coastcare/coastal-alerts/internal/api/v2"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/mqtt"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 15 * time.Second
	telemetryFlush  = 2 * time.Second
	componentServe  = "cmd.serve"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime stream and MQTT bridge.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *options) error {
	settings, log, err := opts.load()
	if err != nil {
		return err
	}

	if err := errors.InitTelemetry(errors.TelemetryConfig{
		DSN:         settings.Sentry.DSN,
		Environment: settings.Sentry.Environment,
		Release:     "coastcare@" + Version,
		SampleRate:  settings.Sentry.SampleRate,
	}); err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}
	defer errors.FlushTelemetry(telemetryFlush)

	a, err := newApp(settings, log)
	if err != nil {
		errors.Capture(err, componentServe)
		return err
	}
	defer a.close()

	if settings.MQTT.Enabled {
		client, err := startMQTT(ctx, a)
		if err != nil {
			return err
		}
		defer client.Disconnect()
	}

	server, err := api.NewServer(apiv2.Deps{
		Settings: settings,
		Store:    a.store,
		Ingest:   a.ingest,
		Mailer:   a.mailer,
		Inbox:    a.channels.Inbox,
		Hub:      a.channels.Hub,
		Channels: a.channels.Registry,
		Metrics:  a.metrics,
		Ping:     a.ping,
		Clock:    a.clock,
		Log:      log.With(logger.String("component", "api")),
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			errors.Capture(err, componentServe)
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Error(err))
		return err
	}
	return <-serveErr
}

// startMQTT connects the broker, subscribes to readings and, when enabled,
// mirrors alerts onto the broker.
func startMQTT(ctx context.Context, a *app) (mqtt.Client, error) {
	cfg := &a.settings.MQTT
	log := a.log.With(logger.String("component", "mqtt"))

	client, err := mqtt.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	qos := byte(cfg.QoS)
	if err := mqtt.NewSubscriber(client, a.ingest, cfg.TopicPrefix, qos, a.metrics, log).Start(ctx); err != nil {
		client.Disconnect()
		return nil, err
	}
	if cfg.PublishAlerts {
		mqtt.NewPublisher(client, cfg.TopicPrefix, qos, a.metrics, log).Attach(a.bus)
	}
	return client, nil
}
