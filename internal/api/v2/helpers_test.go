package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/detector"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/notification"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeMailer records sends instead of talking SMTP.
type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	connectOK  bool
	sendOK     bool
	alerts     []string
	welcomes   []string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{configured: true, connectOK: true, sendOK: true}
}

func (m *fakeMailer) Status() email.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return email.Status{Configured: m.configured, Connected: m.configured}
}

func (m *fakeMailer) TestConnection(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectOK
}

func (m *fakeMailer) SendAlertEmail(_ context.Context, to string, _ *alerting.NotificationData) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendOK {
		m.alerts = append(m.alerts, to)
	}
	return m.sendOK
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, to, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendOK {
		m.welcomes = append(m.welcomes, to)
	}
	return m.sendOK
}

func (m *fakeMailer) alertRecipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.alerts...)
}

func (m *fakeMailer) welcomeRecipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.welcomes...)
}

// testHarness runs the controller over a private in-memory database with the
// real ingest, detection and dispatch pipeline behind it.
type testHarness struct {
	e      *echo.Echo
	ctrl   *Controller
	db     *gorm.DB
	store  *repository.Store
	inbox  *notification.Inbox
	hub    *notification.Hub
	mailer *fakeMailer
	clock  *clockwork.FakeClock
}

type harnessOption func(*Deps)

func withPing(fn HealthCheck) harnessOption {
	return func(d *Deps) { d.Ping = fn }
}

func withoutMailer() harnessOption {
	return func(d *Deps) { d.Mailer = nil }
}

func newTestHarness(t *testing.T, opts ...harnessOption) *testHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(entities.All()...))

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	settings := conf.Defaults()
	settings.HTTP.SessionSecret = "test-session-secret-0123456789abcdef"
	settings.Main.TimeZone = "UTC"

	clock := clockwork.NewFakeClockAt(testNow)
	metrics := observability.NewMetricsForTesting()
	store := repository.NewStore(db)
	mailer := newFakeMailer()

	hub := notification.NewHub(metrics, log)
	components, err := notification.Setup(&settings.Notification, mailer, hub, clock, log)
	require.NoError(t, err)

	bus := alerting.NewAlertEventBus(log)
	hub.ForwardAlerts(bus)
	pipeline := alerting.Initialize(store, components.Registry, bus, metrics, clock, alerting.DispatcherConfig{
		ChannelTimeout: 5 * time.Second,
		MaxConcurrency: 4,
		Location:       time.UTC,
	}, log)

	ingester := ingest.NewService(ingest.Deps{
		Sensors:  store.Sensors,
		Readings: store.Readings,
		Detector: detector.New(store.Readings, log),
		Trigger:  pipeline.Trigger,
		Clock:    clock,
		Metrics:  metrics,
		Log:      log,
	})

	deps := Deps{
		Settings: settings,
		Store:    store,
		Ingest:   ingester,
		Mailer:   mailer,
		Inbox:    components.Inbox,
		Hub:      hub,
		Channels: components.Registry,
		Metrics:  metrics,
		Clock:    clock,
		Log:      log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	e := echo.New()
	ctrl, err := New(e, deps)
	require.NoError(t, err)
	ctrl.bcryptCost = bcrypt.MinCost

	t.Cleanup(func() {
		ctrl.Shutdown()
		bus.Stop()
	})

	return &testHarness{
		e:      e,
		ctrl:   ctrl,
		db:     db,
		store:  store,
		inbox:  components.Inbox,
		hub:    hub,
		mailer: mailer,
		clock:  clock,
	}
}

// do serves one request. body is JSON-encoded unless nil.
func (h *testHarness) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

type testUser struct {
	ID     string
	Email  string
	APIKey string
}

func (u testUser) headers() http.Header {
	h := http.Header{}
	h.Set(headerUserEmail, u.Email)
	h.Set(headerAPIKey, u.APIKey)
	return h
}

func (h *testHarness) createUser(t *testing.T, emailAddr string) testUser {
	t.Helper()
	rec := h.do(t, http.MethodPost, Prefix+"/users", map[string]string{"email": emailAddr, "name": "Harbour Master"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User   entities.User `json:"user"`
		APIKey string        `json:"api_key"`
	}
	decode(t, rec, &resp)
	return testUser{ID: resp.User.ID, Email: resp.User.Email, APIKey: resp.APIKey}
}

func (h *testHarness) seedSensor(t *testing.T, name, location string, sensorType entities.SensorType, status entities.SensorStatus) *entities.Sensor {
	t.Helper()
	sensor := &entities.Sensor{Name: name, Location: location, SensorType: sensorType, Status: status}
	require.NoError(t, h.store.Sensors.CreateSensor(t.Context(), sensor))
	return sensor
}

func (h *testHarness) seedSubscription(t *testing.T, userID string, sensorID string, methods ...string) *entities.Subscription {
	t.Helper()
	sub := &entities.Subscription{
		UserID:              userID,
		SensorID:            &sensorID,
		AlertTypes:          entities.StringList{},
		SeverityLevels:      entities.StringList{},
		NotificationMethods: entities.StringList(methods),
		IsActive:            true,
	}
	require.NoError(t, h.store.Subscriptions.CreateSubscription(t.Context(), sub))
	return sub
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func floatPtr(v float64) *float64 { return &v }
