//go:build integration

package notification_test

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/coastcare/coastal-alerts/internal/testutil/containers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupNtfyContainer starts an ntfy server and registers cleanup. Auth is
// enabled when username is set.
func setupNtfyContainer(t *testing.T, username, password string) *containers.NtfyContainer {
	t.Helper()
	ctx := context.Background()
	cfg := containers.DefaultNtfyConfig()
	cfg.EnableAuth = username != ""
	c, err := containers.NewNtfyContainer(ctx, &cfg)
	require.NoError(t, err, "failed to start ntfy container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	if username != "" {
		require.NoError(t, c.AddUser(ctx, username, password), "failed to add user")
	}
	return c
}

func uniqueTopic(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func TestShoutrrrProvider_NtfyDelivery(t *testing.T) {
	container := setupNtfyContainer(t, "", "")
	ctx := context.Background()

	tests := []struct {
		name    string
		title   string
		message string
	}{
		{name: "basic", message: "Storm surge warning for Dwarka"},
		{name: "with_title", title: "Coastal Alert: HIGH - Okha", message: "Wave height 6.2 meters"},
		{name: "special_chars", message: "Temperature > 40°C & rising < 1h 🌊"},
		{name: "long_message", message: strings.Repeat("A", 2048)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic := uniqueTopic(tt.name)
			provider := notification.NewShoutrrrProvider("push", true, []string{container.ShoutrrrURL(topic, nil)}, 30*time.Second)
			require.NoError(t, provider.ValidateConfig())

			require.NoError(t, provider.Send(ctx, notification.NewNotification(notification.PriorityHigh, tt.title, tt.message)))

			messages, err := container.PollMessages(ctx, topic)
			require.NoError(t, err)
			require.Len(t, messages, 1)
			assert.Equal(t, tt.message, messages[0].Message)
			if tt.title != "" {
				assert.Equal(t, tt.title, messages[0].Title)
			}
		})
	}
}

func TestShoutrrrProvider_NtfyBasicAuth(t *testing.T) {
	const (
		user = "coastcare"
		pass = "p@ss:w#rd!"
	)
	container := setupNtfyContainer(t, user, pass)
	ctx := context.Background()

	t.Run("valid_credentials", func(t *testing.T) {
		topic := uniqueTopic("auth")
		require.NoError(t, container.GrantAccess(ctx, user, topic, "rw"))

		provider := notification.NewShoutrrrProvider("push", true, []string{container.ShoutrrrURL(topic, url.UserPassword(user, pass))}, 30*time.Second)
		require.NoError(t, provider.Send(ctx, notification.NewNotification(notification.PriorityMedium, "", "authenticated")))

		messages, err := container.PollMessagesWithAuth(ctx, topic, user, pass)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "authenticated", messages[0].Message)
	})

	t.Run("wrong_password", func(t *testing.T) {
		topic := uniqueTopic("wrong")
		require.NoError(t, container.GrantAccess(ctx, user, topic, "rw"))

		provider := notification.NewShoutrrrProvider("push", true, []string{container.ShoutrrrURL(topic, url.UserPassword(user, "wrong"))}, 30*time.Second)
		assert.Error(t, provider.Send(ctx, notification.NewNotification(notification.PriorityMedium, "", "denied")))
	})

	t.Run("no_credentials", func(t *testing.T) {
		topic := uniqueTopic("anon")
		require.NoError(t, container.GrantAccess(ctx, user, topic, "rw"))

		provider := notification.NewShoutrrrProvider("push", true, []string{container.ShoutrrrURL(topic, nil)}, 30*time.Second)
		assert.Error(t, provider.Send(ctx, notification.NewNotification(notification.PriorityMedium, "", "denied")))
	})
}

func TestChannels_DeliverThroughNtfy(t *testing.T) {
	container := setupNtfyContainer(t, "", "")
	ctx := context.Background()
	host := container.GetHost(ctx)

	data := &alerting.NotificationData{
		AlertID:     "alert-1",
		Location:    "Veraval",
		AlertType:   "extreme_waves",
		Severity:    "critical",
		Message:     "Extreme wave height: 9m",
		ActualValue: 9,
		Unit:        "meters",
	}

	t.Run("push", func(t *testing.T) {
		topic := uniqueTopic("push")
		provider := notification.NewShoutrrrProvider("push", true, []string{container.ShoutrrrURL(topic, nil)}, 30*time.Second)
		ch := notification.NewPushChannel(provider, discardLogger())

		require.NoError(t, ch.Deliver(ctx, &entities.User{ID: "u1"}, data))

		messages, err := container.PollMessages(ctx, topic)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "Coastal Alert: CRITICAL - Veraval", messages[0].Title)
		assert.Equal(t, notification.ShortText(data), messages[0].Message)
	})

	t.Run("sms_phone_placeholder", func(t *testing.T) {
		prefix := uniqueTopic("sms")
		provider := notification.NewShoutrrrProvider("sms", true,
			[]string{fmt.Sprintf("ntfy://%s/%s-%s?scheme=http", host, prefix, notification.PhonePlaceholder)}, 30*time.Second)
		ch := notification.NewSMSChannel(provider, discardLogger())

		require.NoError(t, ch.Deliver(ctx, &entities.User{ID: "u1", Phone: "919800000000"}, data))

		messages, err := container.PollMessages(ctx, prefix+"-919800000000")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, notification.ShortText(data), messages[0].Message)
	})
}
