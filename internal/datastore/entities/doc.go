// Package entities defines the GORM models persisted by the service.
//
// Every model uses a UUID string primary key assigned on create when empty,
// and serializes with snake_case JSON keys.
package entities
