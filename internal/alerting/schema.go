package alerting

import "github.com/coastcare/coastal-alerts/internal/detector"

// Schema describes detection rules and the notification methods a
// subscription may choose from.
type Schema struct {
	detector.Schema
	NotificationMethods []string `json:"notificationMethods"`
}

// GetSchema returns the alerting schema for the UI. Methods come from the
// registry when one is given, otherwise the built-in list is used.
func GetSchema(registry *ChannelRegistry) Schema {
	methods := Methods()
	if registry != nil {
		methods = registry.Names()
	}
	return Schema{
		Schema:              detector.GetSchema(),
		NotificationMethods: methods,
	}
}
