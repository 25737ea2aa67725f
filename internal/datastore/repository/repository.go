// Package repository provides GORM-backed data access for the service.
package repository

import (
	"context"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"gorm.io/gorm"
)

// SensorRepository reads and provisions sensors.
type SensorRepository interface {
	GetSensor(ctx context.Context, id string) (*entities.Sensor, error)
	ListSensors(ctx context.Context, filter SensorFilter) ([]entities.Sensor, error)
	CreateSensor(ctx context.Context, sensor *entities.Sensor) error
	CountSensors(ctx context.Context) (int64, error)
}

// ReadingRepository appends and queries sensor readings.
type ReadingRepository interface {
	InsertReading(ctx context.Context, reading *entities.Reading) error
	InsertReadings(ctx context.Context, readings []entities.Reading) error
	// GetRecentReadings returns up to limit readings for a sensor, newest first.
	GetRecentReadings(ctx context.Context, sensorID string, limit int) ([]entities.Reading, error)
	CountReadings(ctx context.Context) (int64, error)
}

// AlertRepository persists and queries alerts.
type AlertRepository interface {
	InsertAlert(ctx context.Context, alert *entities.Alert) error
	// GetAlert returns the alert with its sensor preloaded.
	GetAlert(ctx context.Context, id string) (*entities.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, error)
	ResolveAlert(ctx context.Context, id string, resolved bool, at time.Time) (*entities.Alert, error)
	CountAlerts(ctx context.Context) (int64, error)
}

// SubscriptionRepository manages user alert subscriptions.
type SubscriptionRepository interface {
	// GetActiveSubscriptions returns active subscriptions matching any of the
	// dimensions in match.
	GetActiveSubscriptions(ctx context.Context, match SubscriptionMatch) ([]entities.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]entities.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*entities.Subscription, error)
	CreateSubscription(ctx context.Context, sub *entities.Subscription) error
	UpdateSubscription(ctx context.Context, sub *entities.Subscription) error
	DeleteSubscription(ctx context.Context, id, userID string) error
}

// UserRepository reads and creates notification recipients.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	CreateUser(ctx context.Context, user *entities.User) error
}

// NotificationRepository appends delivery attempt records. There is
// deliberately no update or delete.
type NotificationRepository interface {
	InsertNotificationAttempt(ctx context.Context, attempt *entities.NotificationAttempt) error
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]entities.NotificationAttempt, error)
}

// SensorFilter controls sensor listing.
type SensorFilter struct {
	Status     entities.SensorStatus
	SensorType entities.SensorType
}

// AlertFilter controls alert listing.
type AlertFilter struct {
	Resolved *bool
	Severity entities.Severity
	SensorID string
	Limit    int
	Offset   int
}

// SubscriptionMatch carries the alert dimensions a subscription may match on.
type SubscriptionMatch struct {
	SensorID   string
	Location   string
	SensorType string
}

// AttemptFilter controls attempt listing.
type AttemptFilter struct {
	AlertID string
	UserID  string
	Limit   int
}

// Store groups every repository over a single connection.
type Store struct {
	Sensors       SensorRepository
	Readings      ReadingRepository
	Alerts        AlertRepository
	Subscriptions SubscriptionRepository
	Users         UserRepository
	Notifications NotificationRepository
}

// NewStore builds all repositories on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Sensors:       NewSensorRepository(db),
		Readings:      NewReadingRepository(db),
		Alerts:        NewAlertRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Users:         NewUserRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
