package alerting

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func strPtr(s string) *string { return &s }

type fakeAlertStore struct {
	mu        sync.Mutex
	alerts    map[string]*entities.Alert
	failFor   map[entities.AlertType]bool
	nextID    int
	getErr    error
	insertLog []string
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: map[string]*entities.Alert{}, failFor: map[entities.AlertType]bool{}}
}

func (f *fakeAlertStore) InsertAlert(_ context.Context, alert *entities.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[alert.AlertType] {
		return errors.New("disk I/O error")
	}
	f.nextID++
	alert.ID = fmt.Sprintf("stored-%d", f.nextID)
	f.alerts[alert.ID] = alert
	f.insertLog = append(f.insertLog, alert.ID)
	return nil
}

func (f *fakeAlertStore) GetAlert(_ context.Context, id string) (*entities.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.alerts[id]
	if !ok {
		return nil, repository.ErrAlertNotFound
	}
	return a, nil
}

type fakeUsers map[string]*entities.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*entities.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

type fakeSubscriptions struct {
	subs      []entities.Subscription
	lastMatch repository.SubscriptionMatch
	err       error
}

func (f *fakeSubscriptions) GetActiveSubscriptions(_ context.Context, match repository.SubscriptionMatch) ([]entities.Subscription, error) {
	f.lastMatch = match
	if f.err != nil {
		return nil, f.err
	}
	// Emulate the OR query so the matcher sees realistic candidates.
	var out []entities.Subscription
	for _, s := range f.subs {
		if !s.IsActive {
			continue
		}
		if (s.SensorID != nil && *s.SensorID == match.SensorID) ||
			(s.Location != nil && *s.Location == match.Location) ||
			(s.SensorType != nil && *s.SensorType == match.SensorType) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts []entities.NotificationAttempt
	err      error
}

func (f *fakeAttempts) InsertNotificationAttempt(_ context.Context, a *entities.NotificationAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, *a)
	return nil
}

func (f *fakeAttempts) all() []entities.NotificationAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.NotificationAttempt(nil), f.attempts...)
}

// funcChannel is a Channel backed by a function.
type funcChannel struct {
	name string
	fn   func(ctx context.Context, u *entities.User, d *NotificationData) error

	mu    sync.Mutex
	calls []string
}

func (c *funcChannel) Name() string { return c.name }

func (c *funcChannel) Deliver(ctx context.Context, u *entities.User, d *NotificationData) error {
	c.mu.Lock()
	c.calls = append(c.calls, u.ID)
	c.mu.Unlock()
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, u, d)
}

func (c *funcChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
