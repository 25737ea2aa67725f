package repository

import (
	"testing"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupTestDB creates a private in-memory database with every table migrated.
func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func strPtr(s string) *string { return &s }

func seedSensor(t *testing.T, db *gorm.DB, name, location string, sensorType entities.SensorType) *entities.Sensor {
	t.Helper()
	sensor := &entities.Sensor{
		Name:       name,
		Location:   location,
		SensorType: sensorType,
		Status:     entities.SensorStatusActive,
	}
	require.NoError(t, db.Create(sensor).Error)
	return sensor
}

func seedUser(t *testing.T, db *gorm.DB, email string) *entities.User {
	t.Helper()
	user := &entities.User{Email: email, Name: "Test User", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}
