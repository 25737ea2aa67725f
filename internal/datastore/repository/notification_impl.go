package repository

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) InsertNotificationAttempt(ctx context.Context, attempt *entities.NotificationAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to insert notification attempt: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListAttempts(ctx context.Context, filter AttemptFilter) ([]entities.NotificationAttempt, error) {
	var attempts []entities.NotificationAttempt
	query := r.db.WithContext(ctx)
	if filter.AlertID != "" {
		query = query.Where("alert_id = ?", filter.AlertID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Order("created_at DESC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list notification attempts: %w", err)
	}
	return attempts, nil
}
