package api

import (
	"net/http"
	"testing"

	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inboxResponse struct {
	Notifications []notification.InboxItem `json:"notifications"`
	Count         int                      `json:"count"`
	UnreadCount   int                      `json:"unreadCount"`
}

func TestNotificationInbox_Lifecycle(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")
	other := h.createUser(t, "other@example.com")

	rec := h.do(t, http.MethodGet, Prefix+"/notifications", nil, user.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"notifications":[],"count":0,"unreadCount":0}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, Prefix+"/notifications/test", nil, user.headers())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var inbox inboxResponse
	rec = h.do(t, http.MethodGet, Prefix+"/notifications", nil, user.headers())
	decode(t, rec, &inbox)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, 1, inbox.UnreadCount)
	item := inbox.Notifications[0]
	assert.Equal(t, "high", item.Severity)
	require.NotNil(t, item.Data)
	assert.Equal(t, "Test Location, Gujarat", item.Data.Location)
	assert.Equal(t, "6/1/2025, 12:00:00 PM", item.Data.Timestamp)

	// Inboxes are private.
	rec = h.do(t, http.MethodGet, Prefix+"/notifications/unread/count", nil, other.headers())
	assert.JSONEq(t, `{"unreadCount":0}`, rec.Body.String())
	rec = h.do(t, http.MethodPut, Prefix+"/notifications/"+item.ID+"/read", nil, other.headers())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPut, Prefix+"/notifications/"+item.ID+"/read", nil, user.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, Prefix+"/notifications/unread/count", nil, user.headers())
	assert.JSONEq(t, `{"unreadCount":0}`, rec.Body.String())

	rec = h.do(t, http.MethodDelete, Prefix+"/notifications/"+item.ID, nil, user.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodDelete, Prefix+"/notifications/"+item.ID, nil, user.headers())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Notification not found", errorMessage(t, rec))
}

func TestNotificationInbox_RequiresAuth(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	for _, path := range []string{"/notifications", "/notifications/unread/count", "/notifications/check-ntfy-server?host=example.com"} {
		rec := h.do(t, http.MethodGet, Prefix+path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
