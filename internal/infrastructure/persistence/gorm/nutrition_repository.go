package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"gorm.io/gorm"
)

// NutritionRepository stores food logs and goals using GORM
type NutritionRepository struct {
	db *gorm.DB
}

// NewNutritionRepository creates a new nutrition repository
func NewNutritionRepository(db *gorm.DB) *NutritionRepository {
	return &NutritionRepository{db: db}
}

var _ outbound.NutritionRepository = (*NutritionRepository)(nil)

// CreateEntry stores a food log entry
func (r *NutritionRepository) CreateEntry(ctx context.Context, entry *nutrition.FoodLogEntry) error {
	return r.db.WithContext(ctx).Create(EntryToModel(entry)).Error
}

// FindEntry loads one entry
func (r *NutritionRepository) FindEntry(ctx context.Context, id uuid.UUID) (*nutrition.FoodLogEntry, error) {
	var model FoodLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ModelToEntry(&model), nil
}

// DeleteEntry removes one entry
func (r *NutritionRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&FoodLogModel{}, "id = ?", id).Error
}

// ListEntries returns the user's entries between two dates inclusive
func (r *NutritionRepository) ListEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*nutrition.FoodLogEntry, error) {
	var models []FoodLogModel
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, shared.DateOf(from), shared.DateOf(to)).
		Order("date ASC, created_at ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	entries := make([]*nutrition.FoodLogEntry, len(models))
	for i := range models {
		entries[i] = ModelToEntry(&models[i])
	}
	return entries, nil
}

// GetGoals returns stored goals or nil
func (r *NutritionRepository) GetGoals(ctx context.Context, userID uuid.UUID) (*nutrition.Goals, error) {
	var model NutritionGoalModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &nutrition.Goals{
		UserID:   model.UserID,
		Calories: model.Calories,
		Protein:  model.Protein,
		Carbs:    model.Carbs,
		Fat:      model.Fat,
		MinScore: model.MinScore,
	}, nil
}

// SaveGoals upserts the user's goals
func (r *NutritionRepository) SaveGoals(ctx context.Context, goals nutrition.Goals) error {
	return r.db.WithContext(ctx).Save(&NutritionGoalModel{
		UserID:    goals.UserID,
		Calories:  goals.Calories,
		Protein:   goals.Protein,
		Carbs:     goals.Carbs,
		Fat:       goals.Fat,
		MinScore:  goals.MinScore,
		UpdatedAt: time.Now().UTC(),
	}).Error
}
