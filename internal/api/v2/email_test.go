package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailStatus(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := h.do(t, http.MethodGet, Prefix+"/email/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":{"configured":true,"connected":true},"configured":true,"connected":true}`, rec.Body.String())
}

func TestEmailStatus_NoMailer(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t, withoutMailer())

	rec := h.do(t, http.MethodGet, Prefix+"/email/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":{"configured":false,"connected":false},"configured":false,"connected":false}`, rec.Body.String())
}

func TestSendTestEmail(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/email/test", map[string]string{"to": "harbour@example.com"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, Prefix+"/email/test", map[string]string{"to": ""}, user.headers())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email address is required", errorMessage(t, rec))

	rec = h.do(t, http.MethodPost, Prefix+"/email/test", map[string]string{"to": "Harbour <harbour@example.com>"}, user.headers())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Test email sent successfully", resp["message"])
	assert.Equal(t, []string{"harbour@example.com"}, h.mailer.alertRecipients())
}

func TestSendTestEmail_Failures(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	h.mailer.mu.Lock()
	h.mailer.connectOK = false
	h.mailer.mu.Unlock()
	rec := h.do(t, http.MethodPost, Prefix+"/email/test", map[string]string{"to": "harbour@example.com"}, user.headers())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Email service connection failed. Check your SMTP configuration.", errorMessage(t, rec))

	h.mailer.mu.Lock()
	h.mailer.connectOK = true
	h.mailer.sendOK = false
	h.mailer.mu.Unlock()
	rec = h.do(t, http.MethodPost, Prefix+"/email/test", map[string]string{"to": "harbour@example.com"}, user.headers())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to send test email", errorMessage(t, rec))
}

func TestSendWelcomeEmail(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/email/welcome", map[string]string{"to": "new@example.com", "name": "Asha"}, user.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"new@example.com"}, h.mailer.welcomeRecipients())
}
