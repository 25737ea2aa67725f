package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertTitleAndShortText(t *testing.T) {
	t.Parallel()
	data := sampleData()
	assert.Equal(t, "Storm Surge - Dwarka, Gujarat", AlertTitle(data))
	assert.Equal(t, "[HIGH] Storm Surge - Dwarka, Gujarat: High wind speeds detected: 36mph (36 mph)", ShortText(data))

	data.Location = ""
	data.Unit = ""
	data.AlertType = "high_water"
	assert.Equal(t, "High Water", AlertTitle(data))
	assert.Equal(t, "[HIGH] High Water: High wind speeds detected: 36mph", ShortText(data))

	data.Unit = "meters"
	data.ActualValue = 2.5
	assert.Contains(t, ShortText(data), "(2.5 meters)")
}

func TestEmailChannel(t *testing.T) {
	t.Parallel()

	ok := &fakeMailer{ok: true}
	ch := NewEmailChannel(ok)
	assert.Equal(t, alerting.MethodEmail, ch.Name())
	require.NoError(t, ch.Deliver(t.Context(), &entities.User{ID: "u1", Email: "a@example.com"}, sampleData()))
	assert.Equal(t, []string{"a@example.com"}, ok.sent)

	err := ch.Deliver(t.Context(), &entities.User{ID: "u2"}, sampleData())
	require.ErrorIs(t, err, ErrNoEmailAddress)
	assert.Equal(t, "user has no email address", err.Error())

	failing := NewEmailChannel(&fakeMailer{ok: false})
	err = failing.Deliver(t.Context(), &entities.User{ID: "u1", Email: "a@example.com"}, sampleData())
	require.ErrorIs(t, err, ErrEmailDeliveryFailed)
	assert.Equal(t, "email delivery failed", err.Error())
}

func TestWebChannel_StoresAndPushes(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	inbox := NewInbox(time.Hour, clock)
	hub := NewHub(nil, testLogger())
	live := hub.Register("u1")
	other := hub.Register("u2")

	ch := NewWebChannel(inbox, hub, clock)
	assert.Equal(t, alerting.MethodWeb, ch.Name())
	require.NoError(t, ch.Deliver(t.Context(), &entities.User{ID: "u1"}, sampleData()))

	items := inbox.List("u1", 0)
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "alert-1", item.AlertID)
	assert.Equal(t, "Storm Surge - Dwarka, Gujarat", item.Title)
	assert.Equal(t, "high", item.Severity)
	assert.False(t, item.Read)
	assert.Equal(t, clock.Now(), item.CreatedAt)

	msg := <-live.Messages()
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.Equal(t, item, msg.Data)
	assert.Empty(t, other.Messages())
}

func TestWebChannel_CancelledContext(t *testing.T) {
	t.Parallel()
	inbox := NewInbox(time.Hour, nil)
	ch := NewWebChannel(inbox, nil, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, ch.Deliver(ctx, &entities.User{ID: "u1"}, sampleData()), context.Canceled)
	assert.Empty(t, inbox.List("u1", 0))
}

func TestSMSChannel(t *testing.T) {
	t.Parallel()

	t.Run("no phone", func(t *testing.T) {
		t.Parallel()
		err := NewSMSChannel(nil, testLogger()).Deliver(t.Context(), &entities.User{ID: "u1"}, sampleData())
		require.ErrorIs(t, err, ErrNoPhoneNumber)
		assert.Equal(t, "user has no phone number", err.Error())
	})

	t.Run("log only", func(t *testing.T) {
		t.Parallel()
		ch := NewSMSChannel(nil, testLogger())
		assert.Equal(t, alerting.MethodSMS, ch.Name())
		require.NoError(t, ch.Deliver(t.Context(), &entities.User{ID: "u1", Phone: "+919800000000"}, sampleData()))
	})

	t.Run("provider", func(t *testing.T) {
		t.Parallel()
		p := &recordingProvider{}
		ch := NewSMSChannel(p, testLogger())
		require.NoError(t, ch.Deliver(t.Context(), &entities.User{ID: "u1", Phone: " +919800000000 "}, sampleData()))
		require.Len(t, p.sent, 1)
		assert.Equal(t, "+919800000000", p.sent[0].Recipient)
		assert.Equal(t, PriorityHigh, p.sent[0].Priority)
		assert.Equal(t, ShortText(sampleData()), p.sent[0].Message)
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		p := &recordingProvider{err: errors.New("gateway down")}
		err := NewSMSChannel(p, testLogger()).Deliver(t.Context(), &entities.User{ID: "u1", Phone: "1"}, sampleData())
		require.EqualError(t, err, "gateway down")
	})
}

func TestPushChannel(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewPushChannel(nil, testLogger()).Deliver(t.Context(), &entities.User{ID: "u1"}, sampleData()))

	p := &recordingProvider{}
	ch := NewPushChannel(p, testLogger())
	assert.Equal(t, alerting.MethodPush, ch.Name())
	require.NoError(t, ch.Deliver(t.Context(), &entities.User{ID: "u1"}, sampleData()))
	require.Len(t, p.sent, 1)
	assert.Equal(t, "Coastal Alert: HIGH - Dwarka, Gujarat", p.sent[0].Title)
	assert.Empty(t, p.sent[0].Recipient)
}
