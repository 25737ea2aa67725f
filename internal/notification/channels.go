// Package notification implements the delivery channels used by the alert
// dispatcher together with the in-app inbox and realtime hub.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrNoEmailAddress      = errors.New("user has no email address")
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	ErrNoPhoneNumber       = errors.New("user has no phone number")
)

var titleCaser = cases.Title(language.English)

// AlertTitle renders an alert type and location as "Storm Surge - Dwarka".
func AlertTitle(data *alerting.NotificationData) string {
	title := titleCaser.String(strings.ReplaceAll(data.AlertType, "_", " "))
	if data.Location == "" {
		return title
	}
	return title + " - " + data.Location
}

// ShortText is the compact single-line form used by SMS and push.
func ShortText(data *alerting.NotificationData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", strings.ToUpper(data.Severity), AlertTitle(data), data.Message)
	if data.Unit != "" {
		fmt.Fprintf(&b, " (%s %s)", formatValue(data.ActualValue), data.Unit)
	}
	return b.String()
}

func formatValue(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// AlertMailer sends the alert email template.
type AlertMailer interface {
	SendAlertEmail(ctx context.Context, to string, data *alerting.NotificationData) bool
}

// EmailChannel delivers alerts by SMTP.
type EmailChannel struct {
	mailer AlertMailer
}

// NewEmailChannel creates the email channel.
func NewEmailChannel(mailer AlertMailer) *EmailChannel {
	return &EmailChannel{mailer: mailer}
}

func (c *EmailChannel) Name() string { return alerting.MethodEmail }

func (c *EmailChannel) Deliver(ctx context.Context, user *entities.User, data *alerting.NotificationData) error {
	if strings.TrimSpace(user.Email) == "" {
		return ErrNoEmailAddress
	}
	if !c.mailer.SendAlertEmail(ctx, user.Email, data) {
		return ErrEmailDeliveryFailed
	}
	return nil
}

// WebChannel stores an inbox item and pushes it to the user's live
// connections.
type WebChannel struct {
	inbox *Inbox
	hub   *Hub
	clock clockwork.Clock
}

// NewWebChannel creates the in-app channel. hub may be nil.
func NewWebChannel(inbox *Inbox, hub *Hub, clock clockwork.Clock) *WebChannel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WebChannel{inbox: inbox, hub: hub, clock: clock}
}

func (c *WebChannel) Name() string { return alerting.MethodWeb }

func (c *WebChannel) Deliver(ctx context.Context, user *entities.User, data *alerting.NotificationData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item := c.inbox.Add(InboxItem{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		AlertID:   data.AlertID,
		Title:     AlertTitle(data),
		Message:   data.Message,
		Severity:  data.Severity,
		CreatedAt: c.clock.Now(),
		Data:      data,
	})
	if c.hub != nil {
		c.hub.SendToUser(user.ID, Message{
			Type:      MessageTypeNotification,
			Data:      item,
			Timestamp: item.CreatedAt,
		})
	}
	return nil
}

// SMSChannel texts the user's phone through a shoutrrr provider, or logs the
// text when no provider is configured.
type SMSChannel struct {
	provider Provider
	log      logger.Logger
}

// NewSMSChannel creates the SMS channel. provider may be nil.
func NewSMSChannel(provider Provider, log logger.Logger) *SMSChannel {
	return &SMSChannel{provider: provider, log: log}
}

func (c *SMSChannel) Name() string { return alerting.MethodSMS }

func (c *SMSChannel) Deliver(ctx context.Context, user *entities.User, data *alerting.NotificationData) error {
	phone := strings.TrimSpace(user.Phone)
	if phone == "" {
		return ErrNoPhoneNumber
	}
	text := ShortText(data)
	if c.provider == nil {
		c.log.Info("sms notification",
			logger.String("user_id", user.ID),
			logger.String("alert_id", data.AlertID),
			logger.String("text", text))
		return nil
	}
	n := NewNotification(PriorityForSeverity(data.Severity), "", text)
	n.Recipient = phone
	return c.provider.Send(ctx, n)
}

// PushChannel sends a push notification through a shoutrrr provider, or logs
// it when no provider is configured.
type PushChannel struct {
	provider Provider
	log      logger.Logger
}

// NewPushChannel creates the push channel. provider may be nil.
func NewPushChannel(provider Provider, log logger.Logger) *PushChannel {
	return &PushChannel{provider: provider, log: log}
}

func (c *PushChannel) Name() string { return alerting.MethodPush }

func (c *PushChannel) Deliver(ctx context.Context, user *entities.User, data *alerting.NotificationData) error {
	title := "Coastal Alert: " + strings.ToUpper(data.Severity) + " - " + data.Location
	if c.provider == nil {
		c.log.Info("push notification",
			logger.String("user_id", user.ID),
			logger.String("alert_id", data.AlertID),
			logger.String("title", title))
		return nil
	}
	return c.provider.Send(ctx, NewNotification(PriorityForSeverity(data.Severity), title, ShortText(data)))
}
