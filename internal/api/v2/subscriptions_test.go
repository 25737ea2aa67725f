package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriptionResponse struct {
	Subscription entities.Subscription `json:"subscription"`
}

func TestCreateSubscription_RequiresMatchDimension(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	for _, body := range []map[string]any{
		{},
		{"location": "   "},
		{"severity_levels": []string{"high"}},
	} {
		rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", body, user.headers())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errMsgNoMatchDimension, errorMessage(t, rec))
	}
}

func TestCreateSubscription_Defaults(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", map[string]any{
		"location": "Dwarka, Gujarat",
	}, user.headers())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp subscriptionResponse
	decode(t, rec, &resp)
	sub := resp.Subscription
	assert.Equal(t, user.ID, sub.UserID)
	require.NotNil(t, sub.Location)
	assert.Equal(t, "Dwarka, Gujarat", *sub.Location)
	assert.Nil(t, sub.SensorID)
	assert.Equal(t, entities.StringList{"email", "web"}, sub.NotificationMethods)
	assert.Empty(t, sub.AlertTypes)
	assert.Empty(t, sub.SeverityLevels)
	assert.True(t, sub.IsActive)

	require.Eventually(t, func() bool {
		return len(h.mailer.welcomeRecipients()) == 1
	}, 2*time.Second, 10*time.Millisecond, "welcome email is sent in the background")
	assert.Equal(t, []string{"ops@example.com"}, h.mailer.welcomeRecipients())

	matched, err := h.store.Subscriptions.GetActiveSubscriptions(t.Context(), repository.SubscriptionMatch{Location: "Dwarka, Gujarat"})
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestCreateSubscription_Inactive(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", map[string]any{
		"location":  "Okha",
		"is_active": false,
	}, user.headers())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp subscriptionResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Subscription.IsActive)

	stored, err := h.store.Subscriptions.GetSubscription(t.Context(), resp.Subscription.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	matched, err := h.store.Subscriptions.GetActiveSubscriptions(t.Context(), repository.SubscriptionMatch{Location: "Okha"})
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestCreateSubscription_NoWelcomeWithoutEmail(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	h.mailer.configured = false
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", map[string]any{"sensor_type": "wind_speed"}, user.headers())
	require.Equal(t, http.StatusCreated, rec.Code)

	h.ctrl.Shutdown()
	assert.Empty(t, h.mailer.welcomeRecipients())
}

func TestCreateSubscription_RejectsUnknownValues(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"sensor type", map[string]any{"sensor_type": "rainfall"}},
		{"alert type", map[string]any{"location": "Okha", "alert_types": []string{"tsunami"}}},
		{"severity", map[string]any{"location": "Okha", "severity_levels": []string{"severe"}}},
		{"method", map[string]any{"location": "Okha", "notification_methods": []string{"fax"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", tt.body, user.headers())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateAndDeleteSubscription(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	owner := h.createUser(t, "owner@example.com")
	other := h.createUser(t, "other@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/subscriptions", map[string]any{
		"location":        "Okha, Gujarat",
		"severity_levels": []string{"high", "critical"},
	}, owner.headers())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created subscriptionResponse
	decode(t, rec, &created)
	path := Prefix + "/subscriptions/" + created.Subscription.ID

	rec = h.do(t, http.MethodPut, path, map[string]any{"is_active": false}, other.headers())
	assert.Equal(t, http.StatusNotFound, rec.Code, "other users cannot see the subscription")

	rec = h.do(t, http.MethodPut, path, map[string]any{"location": ""}, owner.headers())
	assert.Equal(t, http.StatusBadRequest, rec.Code, "clearing the only dimension is rejected")

	rec = h.do(t, http.MethodPut, path, map[string]any{
		"sensor_type":          "wave_height",
		"notification_methods": []string{"sms"},
	}, owner.headers())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated subscriptionResponse
	decode(t, rec, &updated)
	require.NotNil(t, updated.Subscription.SensorType)
	assert.Equal(t, "wave_height", *updated.Subscription.SensorType)
	require.NotNil(t, updated.Subscription.Location, "untouched fields are kept")
	assert.Equal(t, entities.StringList{"high", "critical"}, updated.Subscription.SeverityLevels)
	assert.Equal(t, entities.StringList{"sms"}, updated.Subscription.NotificationMethods)

	rec = h.do(t, http.MethodGet, Prefix+"/subscriptions", nil, owner.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Subscriptions []entities.Subscription `json:"subscriptions"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Subscriptions, 1)

	rec = h.do(t, http.MethodDelete, path, nil, other.headers())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, path, nil, owner.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = h.do(t, http.MethodDelete, path, nil, owner.headers())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
