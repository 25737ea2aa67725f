package alerting

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/datastore/repository"
)

// SubscriptionSource returns active subscriptions matching any dimension.
type SubscriptionSource interface {
	GetActiveSubscriptions(ctx context.Context, match repository.SubscriptionMatch) ([]entities.Subscription, error)
}

// Matcher finds the subscriptions that should be notified of an alert.
type Matcher struct {
	subs SubscriptionSource
}

// NewMatcher creates a Matcher backed by subs.
func NewMatcher(subs SubscriptionSource) *Matcher {
	return &Matcher{subs: subs}
}

// Match returns active subscriptions whose sensor, location or sensor type
// matches the alert and whose allow-lists admit it. alert.Sensor should be
// preloaded; without it only the sensor ID dimension can match.
func (m *Matcher) Match(ctx context.Context, alert *entities.Alert) ([]entities.Subscription, error) {
	match := repository.SubscriptionMatch{SensorID: alert.SensorID}
	if alert.Sensor != nil {
		match.Location = alert.Sensor.Location
		match.SensorType = string(alert.Sensor.SensorType)
	}

	candidates, err := m.subs.GetActiveSubscriptions(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to match subscriptions for alert %s: %w", alert.ID, err)
	}

	matched := candidates[:0]
	for i := range candidates {
		if MatchesFilters(&candidates[i], alert) {
			matched = append(matched, candidates[i])
		}
	}
	return matched, nil
}

// MatchesFilters applies the alert type and severity allow-lists. An empty
// list admits everything.
func MatchesFilters(sub *entities.Subscription, alert *entities.Alert) bool {
	return sub.AlertTypes.Allows(string(alert.AlertType)) &&
		sub.SeverityLevels.Allows(string(alert.Severity))
}
