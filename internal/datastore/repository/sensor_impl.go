package repository

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"gorm.io/gorm"
)

type sensorRepository struct {
	db *gorm.DB
}

// NewSensorRepository creates a new SensorRepository.
func NewSensorRepository(db *gorm.DB) SensorRepository {
	return &sensorRepository{db: db}
}

// GetSensor returns ErrSensorNotFound if no sensor has the given ID.
func (r *sensorRepository) GetSensor(ctx context.Context, id string) (*entities.Sensor, error) {
	var sensor entities.Sensor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sensor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("failed to get sensor %s: %w", id, err)
	}
	return &sensor, nil
}

func (r *sensorRepository) ListSensors(ctx context.Context, filter SensorFilter) ([]entities.Sensor, error) {
	var sensors []entities.Sensor
	query := r.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SensorType != "" {
		query = query.Where("sensor_type = ?", filter.SensorType)
	}
	if err := query.Order("location ASC, name ASC").Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}
	return sensors, nil
}

func (r *sensorRepository) CreateSensor(ctx context.Context, sensor *entities.Sensor) error {
	if err := r.db.WithContext(ctx).Create(sensor).Error; err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	return nil
}

func (r *sensorRepository) CountSensors(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Sensor{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sensors: %w", err)
	}
	return count, nil
}
