package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName    = "coastcare_session"
	sessionUserKey = "user_id"
	sessionMaxAge  = 7 * 24 * 60 * 60

	headerAPIKey    = "X-API-Key"
	headerUserEmail = "X-User-Email"

	contextUserKey = "user"
)

var errInvalidCredentials = errors.New("invalid credentials")

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type loginRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

func (c *Controller) initAuthRoutes() {
	c.Group.POST("/users", c.CreateUser)
	c.Group.GET("/users/me", c.GetCurrentUser, c.authMiddleware)

	auth := c.Group.Group("/auth")
	auth.POST("/login", c.Login)
	auth.POST("/logout", c.Logout)
}

// authMiddleware resolves the current user from the session cookie or the
// API key headers and rejects the request when neither identifies an
// active user.
func (c *Controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		user, err := c.resolveUser(ctx)
		if err != nil || user == nil {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		}
		ctx.Set(contextUserKey, user)
		return next(ctx)
	}
}

// resolveUser returns the authenticated user, or nil when the request
// carries no credentials.
func (c *Controller) resolveUser(ctx echo.Context) (*entities.User, error) {
	reqCtx := ctx.Request().Context()

	if key := ctx.Request().Header.Get(headerAPIKey); key != "" {
		return c.verifyAPIKey(ctx, ctx.Request().Header.Get(headerUserEmail), key)
	}

	session, err := c.sessions.Get(ctx.Request(), sessionName)
	if err != nil {
		// A cookie signed with an old secret decodes as an error; treat it as absent.
		return nil, nil
	}
	userID, _ := session.Values[sessionUserKey].(string)
	if userID == "" {
		return nil, nil
	}
	user, err := c.store.Users.GetUser(reqCtx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (c *Controller) verifyAPIKey(ctx echo.Context, email, key string) (*entities.User, error) {
	if email == "" || key == "" {
		return nil, errInvalidCredentials
	}
	user, err := c.store.Users.GetUserByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || user.APIKeyHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.APIKeyHash), []byte(key)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// currentUser returns the user set by authMiddleware.
func currentUser(ctx echo.Context) *entities.User {
	user, _ := ctx.Get(contextUserKey).(*entities.User)
	return user
}

// CreateUser registers a notification recipient and returns its API key.
// Only the bcrypt hash of the key is stored.
func (c *Controller) CreateUser(ctx echo.Context) error {
	var req createUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "A valid email address is required"})
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.store.Users.GetUserByEmail(reqCtx, req.Email); err == nil {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A user with this email already exists"})
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return c.HandleError(ctx, err, "Failed to create user", http.StatusInternalServerError)
	}

	key, err := newAPIKey()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create user", http.StatusInternalServerError)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), c.bcryptCost)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create user", http.StatusInternalServerError)
	}

	user := &entities.User{
		Email:      req.Email,
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		IsActive:   true,
		APIKeyHash: string(hash),
	}
	if err := c.store.Users.CreateUser(reqCtx, user); err != nil {
		return c.HandleError(ctx, err, "Failed to create user", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("user created", logger.String("user_id", user.ID))
	return ctx.JSON(http.StatusCreated, map[string]any{
		"user":    user,
		"api_key": key,
	})
}

// GetCurrentUser returns the authenticated user.
func (c *Controller) GetCurrentUser(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"user": currentUser(ctx)})
}

// Login exchanges an email and API key for a session cookie.
func (c *Controller) Login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	user, err := c.verifyAPIKey(ctx, req.Email, req.APIKey)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.HandleError(ctx, err, "Failed to log in", http.StatusInternalServerError)
	}

	// Get never fails hard here: a stale cookie yields a fresh session.
	session, _ := c.sessions.Get(ctx.Request(), sessionName)
	session.Values[sessionUserKey] = user.ID
	if err := session.Save(ctx.Request(), ctx.Response()); err != nil {
		return c.HandleError(ctx, err, "Failed to save session", http.StatusInternalServerError)
	}

	c.logDebugIfEnabled("user logged in", logger.String("user_id", user.ID))
	return ctx.JSON(http.StatusOK, map[string]any{"user": user})
}

// Logout expires the session cookie.
func (c *Controller) Logout(ctx echo.Context) error {
	session, _ := c.sessions.Get(ctx.Request(), sessionName)
	session.Options.MaxAge = -1
	delete(session.Values, sessionUserKey)
	if err := session.Save(ctx.Request(), ctx.Response()); err != nil {
		return c.HandleError(ctx, err, "Failed to clear session", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}
