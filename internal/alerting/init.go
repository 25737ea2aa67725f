package alerting

import (
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Pipeline bundles the post-detection components built over one store.
type Pipeline struct {
	Matcher    *Matcher
	Dispatcher *Dispatcher
	Trigger    *Trigger
	Channels   *ChannelRegistry
	Bus        *AlertEventBus
}

// Initialize wires the matcher, dispatcher and trigger over store. bus,
// metrics and clock may be nil.
func Initialize(
	store *repository.Store,
	channels *ChannelRegistry,
	bus *AlertEventBus,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	cfg DispatcherConfig,
	log logger.Logger,
) *Pipeline {
	matcher := NewMatcher(store.Subscriptions)
	dispatcher := NewDispatcher(DispatcherDeps{
		Alerts:   store.Alerts,
		Users:    store.Users,
		Attempts: store.Notifications,
		Matcher:  matcher,
		Channels: channels,
		Clock:    clock,
		Metrics:  metrics,
		Log:      log.With(logger.String("component", componentDispatcher)),
	}, cfg)
	trigger := NewTrigger(store.Alerts, dispatcher, bus, metrics, log.With(logger.String("component", componentTrigger)))

	log.Info("alerting pipeline initialized",
		logger.Int("channels", len(channels.Names())),
		logger.Duration("channel_timeout", dispatcher.cfg.ChannelTimeout))

	return &Pipeline{
		Matcher:    matcher,
		Dispatcher: dispatcher,
		Trigger:    trigger,
		Channels:   channels,
		Bus:        bus,
	}
}
