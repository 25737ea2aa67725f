package entities

// All returns every model in migration order.
func All() []any {
	return []any{
		&Sensor{},
		&User{},
		&Reading{},
		&Alert{},
		&Subscription{},
		&NotificationAttempt{},
	}
}
