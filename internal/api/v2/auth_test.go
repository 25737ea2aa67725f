package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	user := h.createUser(t, "Harbour@Example.com")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "harbour@example.com", user.Email, "email is stored lower-cased")
	assert.True(t, strings.HasPrefix(user.APIKey, "cc_"))

	stored, err := h.store.Users.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.APIKey, stored.APIKeyHash, "only the hash is persisted")
	assert.True(t, strings.HasPrefix(stored.APIKeyHash, "$2"))
}

func TestCreateUser_Validation(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	h.createUser(t, "ops@example.com")

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"missing email", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"malformed email", map[string]string{"email": "not-an-address"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"email": "OPS@example.com"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, Prefix+"/users", tt.body, nil)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodGet, Prefix+"/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", errorMessage(t, rec))

	bad := user.headers()
	bad.Set(headerAPIKey, "cc_wrong")
	rec = h.do(t, http.MethodGet, Prefix+"/users/me", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, Prefix+"/users/me", nil, user.headers())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User entities.User `json:"user"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestAuthMiddleware_InactiveUserRejected(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")
	require.NoError(t, h.db.Model(&entities.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	rec := h.do(t, http.MethodGet, Prefix+"/users/me", nil, user.headers())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSessionLogout(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	user := h.createUser(t, "ops@example.com")

	rec := h.do(t, http.MethodPost, Prefix+"/auth/login", map[string]string{"email": user.Email, "api_key": "cc_nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, rec))

	rec = h.do(t, http.MethodPost, Prefix+"/auth/login", map[string]string{"email": user.Email, "api_key": user.APIKey}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	withCookie := http.Header{}
	withCookie.Set("Cookie", cookies[0].Name+"="+cookies[0].Value)
	rec = h.do(t, http.MethodGet, Prefix+"/users/me", nil, withCookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, Prefix+"/auth/logout", nil, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge, "logout expires the cookie")
}

func TestSessionCookie_ForeignSecretIgnored(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	header := http.Header{}
	header.Set("Cookie", sessionName+"=MTcwMDAwMDAwMHxnYXJiYWdlfGJhZHNpZw==")
	rec := h.do(t, http.MethodGet, Prefix+"/users/me", nil, header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
