// Package api implements the CoastCare v2 JSON API on echo.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// Prefix is the mount point of every v2 route.
const Prefix = "/api/v2"

// Ingester stores readings and runs the alert pipeline on them.
type Ingester interface {
	IngestReading(ctx context.Context, in ingest.ReadingInput) (*entities.Reading, error)
	IngestBatch(ctx context.Context, batch []ingest.BatchInput) (ingest.BatchResult, error)
}

// Mailer is the email service surface used by the API.
type Mailer interface {
	Status() email.Status
	TestConnection(ctx context.Context) bool
	SendAlertEmail(ctx context.Context, to string, data *alerting.NotificationData) bool
	SendWelcomeEmail(ctx context.Context, to, name string) bool
}

// HealthCheck reports whether the backing database is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of a Controller. Mailer, Hub, Metrics, Ping and
// Clock may be nil.
type Deps struct {
	Settings *conf.Settings
	Store    *repository.Store
	Ingest   Ingester
	Mailer   Mailer
	Inbox    *notification.Inbox
	Hub      *notification.Hub
	Channels *alerting.ChannelRegistry
	Metrics  *observability.Metrics
	Ping     HealthCheck
	Clock    clockwork.Clock
	Log      logger.Logger
}

// Controller owns the v2 routes and their dependencies.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	store    *repository.Store
	ingest   Ingester
	mailer   Mailer
	inbox    *notification.Inbox
	hub      *notification.Hub
	channels *alerting.ChannelRegistry
	metrics  *observability.Metrics
	ping     HealthCheck
	clock    clockwork.Clock
	sessions sessions.Store

	bcryptCost int

	// ctx is cancelled on Shutdown; background work and websocket loops watch it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log logger.Logger
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, deps Deps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("api: store is required")
	}
	settings := deps.Settings
	if settings == nil {
		settings = conf.Defaults()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	base := deps.Log
	if base == nil {
		base = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	log := base.With(logger.String("component", "api"))

	secret := []byte(settings.HTTP.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.Newf("api: failed to generate session secret: %w", err)
		}
		log.Warn("http.sessionsecret is not set, sessions will not survive a restart")
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		Echo:       e,
		Group:      e.Group(Prefix),
		Settings:   settings,
		store:      deps.Store,
		ingest:     deps.Ingest,
		mailer:     deps.Mailer,
		inbox:      deps.Inbox,
		hub:        deps.Hub,
		channels:   deps.Channels,
		metrics:    deps.Metrics,
		ping:       deps.Ping,
		clock:      clock,
		sessions:   store,
		bcryptCost: bcrypt.DefaultCost,
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}
	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.initHealthRoutes()
	c.initAuthRoutes()
	c.initSensorRoutes()
	c.initIngestRoutes()
	c.initAlertRoutes()
	c.initSubscriptionRoutes()
	c.initNotificationRoutes()
	c.initRealtimeRoutes()
	c.initEmailRoutes()
}

// Shutdown stops websocket streams and waits for background sends.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

// runBackground runs fn detached from the request. Shutdown waits for it.
func (c *Controller) runBackground(name string, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				err := errors.CapturePanic(r, "api")
				c.logErrorIfEnabled("background task panicked",
					logger.String("task", name),
					logger.Error(err))
			}
		}()
		fn(c.ctx)
	}()
}

// HandleError logs err and writes a JSON error body. Details are only
// exposed when HTTP debug is on.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if code >= http.StatusInternalServerError {
		c.logErrorIfEnabled(message,
			logger.Error(err),
			logger.String("path", ctx.Path()),
			logger.Int("status", code))
		errors.Capture(err, "api")
	}
	body := map[string]any{"error": message}
	if c.Settings != nil && c.Settings.HTTP.Debug && err != nil {
		body["details"] = err.Error()
	}
	return ctx.JSON(code, body)
}

func (c *Controller) logErrorIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Error(msg, fields...)
	}
}

func (c *Controller) logInfoIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Info(msg, fields...)
	}
}

func (c *Controller) logDebugIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil && c.Settings != nil && c.Settings.HTTP.Debug {
		c.log.Debug(msg, fields...)
	}
}

// parseLimit reads the limit query parameter, falling back to def for
// missing or invalid values and clamping to max.
func parseLimit(ctx echo.Context, def, max int) int {
	v, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// newAPIKey returns a random key shown to the user exactly once.
func newAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "cc_" + hex.EncodeToString(b), nil
}
