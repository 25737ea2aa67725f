// Package alerting persists detected anomalies and fans them out to
// subscribed users over notification channels.
package alerting

// Notification method names accepted in subscriptions.
const (
	MethodEmail = "email"
	MethodWeb   = "web"
	MethodSMS   = "sms"
	MethodPush  = "push"
)

// Methods lists the built-in notification methods.
func Methods() []string {
	return []string{MethodEmail, MethodWeb, MethodSMS, MethodPush}
}

const (
	// errMsgTimedOut is recorded when a channel does not finish in time.
	errMsgTimedOut = "delivery timed out"

	// timestampLayout renders alert times the way the dashboard shows them.
	timestampLayout = "1/2/2006, 3:04:05 PM"

	// componentDispatcher and componentTrigger tag error reports.
	componentDispatcher = "alerting.dispatcher"
	componentTrigger    = "alerting.trigger"
	componentEventBus   = "alerting.eventbus"
)
