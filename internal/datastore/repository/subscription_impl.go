package repository

import (
	"context"
	"fmt"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetActiveSubscriptions ORs the three match dimensions. NULL columns never
// compare equal, so unset dimensions are excluded by the database.
func (r *subscriptionRepository) GetActiveSubscriptions(ctx context.Context, match SubscriptionMatch) ([]entities.Subscription, error) {
	var subs []entities.Subscription
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(r.db.Where("sensor_id = ?", match.SensorID).
			Or("location = ?", match.Location).
			Or("sensor_type = ?", match.SensorType)).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListUserSubscriptions(ctx context.Context, userID string) ([]entities.Subscription, error) {
	var subs []entities.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

func (r *subscriptionRepository) GetSubscription(ctx context.Context, id string) (*entities.Subscription, error) {
	var sub entities.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) CreateSubscription(ctx context.Context, sub *entities.Subscription) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// UpdateSubscription saves every column of sub. The row must already exist.
func (r *subscriptionRepository) UpdateSubscription(ctx context.Context, sub *entities.Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("failed to update subscription: missing subscription ID")
	}
	if _, err := r.GetSubscription(ctx, sub.ID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("User", "CreatedAt").Save(sub).Error; err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}
	return nil
}

// DeleteSubscription removes a subscription owned by userID.
func (r *subscriptionRepository) DeleteSubscription(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.Subscription{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
