package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"gorm.io/gorm"
)

// hasActiveQuery mirrors Subscription.IsActive: active and trialing rows need an
// open period, past_due rows get PastDueGrace beyond the period end.
const hasActiveQuery = `SELECT COUNT(*) FROM subscriptions WHERE user_id = ? AND (
	(status IN ('active', 'trialing') AND (current_period_end IS NULL OR current_period_end > ?))
	OR (status = 'past_due' AND (current_period_end IS NULL OR current_period_end > ?)))`

// SubscriptionRepository implements the subscription repository interface using GORM
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var _ outbound.SubscriptionRepository = (*SubscriptionRepository)(nil)

// Save inserts or updates a subscription
func (r *SubscriptionRepository) Save(ctx context.Context, sub *subscription.Subscription) error {
	result := r.db.WithContext(ctx).Save(SubscriptionToModel(sub))
	if result.Error != nil && isDuplicate(result.Error) {
		return ErrDuplicate
	}
	return result.Error
}

// FindByUserID returns the user's subscription record
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return r.first(ctx, "user_id = ?", userID)
}

// FindByCustomerID returns the record linked to a billing customer
func (r *SubscriptionRepository) FindByCustomerID(ctx context.Context, customerID string) (*subscription.Subscription, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.first(ctx, "customer_id = ?", customerID)
}

// ListWithProvider returns records linked to a provider subscription
func (r *SubscriptionRepository) ListWithProvider(ctx context.Context) ([]*subscription.Subscription, error) {
	var models []SubscriptionModel
	result := r.db.WithContext(ctx).
		Where("provider_subscription_id <> ''").
		Order("updated_at ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	subs := make([]*subscription.Subscription, len(models))
	for i := range models {
		subs[i] = ModelToSubscription(&models[i])
	}
	return subs, nil
}

// HasActive answers the premium gate with a single aggregate query
func (r *SubscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	now = now.UTC()
	err := r.db.WithContext(ctx).
		Raw(hasActiveQuery, userID, now, now.Add(-subscription.PastDueGrace)).
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SubscriptionRepository) first(ctx context.Context, query string, args ...interface{}) (*subscription.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ModelToSubscription(&model), nil
}
