package notification

import (
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/jonboulle/clockwork"
)

// Components are the channel dependencies shared with the HTTP API.
type Components struct {
	Inbox    *Inbox
	Hub      *Hub
	Registry *alerting.ChannelRegistry
}

// Setup builds the four channels from settings. SMS and push get a shoutrrr
// provider only when URLs are configured.
func Setup(settings *conf.NotificationSettings, mailer AlertMailer, hub *Hub, clock clockwork.Clock, log logger.Logger) (*Components, error) {
	inbox := NewInbox(settings.InboxTTL.Std(), clock)

	sms, err := providerFor("sms", settings.SMS)
	if err != nil {
		return nil, err
	}
	push, err := providerFor("push", settings.Push)
	if err != nil {
		return nil, err
	}

	registry := alerting.NewChannelRegistry(
		NewEmailChannel(mailer),
		NewWebChannel(inbox, hub, clock),
		NewSMSChannel(sms, log.With(logger.String("channel", alerting.MethodSMS))),
		NewPushChannel(push, log.With(logger.String("channel", alerting.MethodPush))),
	)
	log.Info("notification channels ready",
		logger.Bool("sms_provider", sms != nil),
		logger.Bool("push_provider", push != nil),
		logger.Duration("inbox_ttl", inbox.ttl))

	return &Components{Inbox: inbox, Hub: hub, Registry: registry}, nil
}

// providerFor returns nil, not a typed nil pointer, when no URLs are set.
func providerFor(name string, s conf.ShoutrrrSettings) (Provider, error) {
	if len(s.URLs) == 0 {
		return nil, nil
	}
	p := NewShoutrrrProvider(name, true, s.URLs, s.Timeout.Std())
	if err := p.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid %s notification settings: %w", name, err)
	}
	return p, nil
}
