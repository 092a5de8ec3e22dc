package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"gorm.io/gorm"
)

// MealPlanRepository implements the meal plan repository interface using GORM
type MealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates a new meal plan repository
func NewMealPlanRepository(db *gorm.DB) *MealPlanRepository {
	return &MealPlanRepository{db: db}
}

var _ outbound.MealPlanRepository = (*MealPlanRepository)(nil)

// Save inserts or updates a plan
func (r *MealPlanRepository) Save(ctx context.Context, plan *mealplan.MealPlan) error {
	return r.db.WithContext(ctx).Save(MealPlanToModel(plan)).Error
}

// FindByID finds a plan by ID
func (r *MealPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealplan.MealPlan, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindActive returns the user's active plan for one week
func (r *MealPlanRepository) FindActive(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*mealplan.MealPlan, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ? AND status = ?", userID, weekStart.UTC(), string(mealplan.StatusActive)).
		Order("created_at DESC"))
}

// FindLatest returns the user's active plan with the latest week
func (r *MealPlanRepository) FindLatest(ctx context.Context, userID uuid.UUID) (*mealplan.MealPlan, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(mealplan.StatusActive)).
		Order("week_start DESC, created_at DESC"))
}

// ListByUser pages through all of a user's plans, newest week first
func (r *MealPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*mealplan.MealPlan, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&MealPlanModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []MealPlanModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_start DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	plans := make([]*mealplan.MealPlan, len(models))
	for i := range models {
		plans[i] = ModelToMealPlan(&models[i])
	}
	return plans, total, nil
}

// Delete removes a plan
func (r *MealPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&MealPlanModel{}, "id = ?", id).Error
}

func (r *MealPlanRepository) first(query *gorm.DB) (*mealplan.MealPlan, error) {
	var model MealPlanModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ModelToMealPlan(&model), nil
}
