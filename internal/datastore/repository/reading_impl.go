package repository

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"gorm.io/gorm"
)

// readingBatchSize bounds the rows per INSERT statement for batch ingestion.
const readingBatchSize = 200

type readingRepository struct {
	db *gorm.DB
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{db: db}
}

func (r *readingRepository) InsertReading(ctx context.Context, reading *entities.Reading) error {
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// InsertReadings stores readings in one transaction. On success the slice
// elements carry their assigned IDs.
func (r *readingRepository) InsertReadings(ctx context.Context, readings []entities.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(readings, readingBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert %d readings: %w", len(readings), err)
	}
	return nil
}

func (r *readingRepository) GetRecentReadings(ctx context.Context, sensorID string, limit int) ([]entities.Reading, error) {
	if limit <= 0 {
		limit = 5
	}
	var readings []entities.Reading
	err := r.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent readings for sensor %s: %w", sensorID, err)
	}
	return readings, nil
}

func (r *readingRepository) CountReadings(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Reading{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}
