package repository

import "github.com/coastcare/coastal-alerts/internal/errors"

// Sentinel errors returned when a lookup by ID finds no row.
var (
	ErrSensorNotFound       = errors.New("sensor not found")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUserNotFound         = errors.New("user not found")
)
