// Package containers starts the Docker services used by integration tests:
//
//   - MySQL 8.0 for the gorm repository suite
//   - Eclipse Mosquitto for MQTT ingestion and alert publishing
//   - ntfy in place of the shoutrrr push and SMS gateways
//
// Every file carries the "integration" build tag, so these helpers and their
// users only compile under
//
//	go test -tags=integration ./...
//
// Containers are usually shared per package through TestMain and terminated
// after m.Run.
package containers
