package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// Create creates a new recipe
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	return r.db.WithContext(ctx).Create(RecipeToModel(rec)).Error
}

// Update updates an existing recipe
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	result := r.db.WithContext(ctx).Save(RecipeToModel(rec))
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("recipe not found")
	}

	return nil
}

// Delete deletes a recipe by ID (soft delete) and its favorites
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&FavoriteModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&RecipeModel{}, "id = ?", id).Error
	})
}

// FindByID finds a recipe by ID
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var model RecipeModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return ModelToRecipe(&model), nil
}

// FindByIDs finds recipes by multiple IDs
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	if len(ids) == 0 {
		return []*recipe.Recipe{}, nil
	}

	var models []RecipeModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return toRecipes(models), nil
}

// List returns recipes matching filter and the total match count
func (r *RecipeRepository) List(ctx context.Context, filter outbound.RecipeFilter) ([]*recipe.Recipe, int64, error) {
	query := r.db.WithContext(ctx).Model(&RecipeModel{})

	if !filter.IncludeUnpublished {
		query = query.Where("status = ?", string(recipe.RecipeStatusPublished))
	}
	if filter.MealType != "" {
		query = query.Where("CAST(meal_types AS TEXT) LIKE ?", jsonElementPattern(string(filter.MealType)))
	}
	if filter.MinScore > 0 {
		query = query.Where("anti_inflammatory_score >= ?", filter.MinScore)
	}
	if filter.MaxPrepMinutes > 0 {
		query = query.Where("prep_time_minutes <= ?", filter.MaxPrepMinutes)
	}
	if filter.Tag != "" {
		query = query.Where("CAST(tags AS TEXT) LIKE ?", jsonElementPattern(strings.ToLower(filter.Tag)))
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []RecipeModel
	result := query.
		Order(recipeOrder(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return toRecipes(models), total, nil
}

// FindForPlanning returns the candidate pool for meal plan generation
func (r *RecipeRepository) FindForPlanning(ctx context.Context, minScore, maxPrepMinutes int) ([]*recipe.Recipe, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND anti_inflammatory_score >= ?", string(recipe.RecipeStatusPublished), minScore)
	if maxPrepMinutes > 0 {
		query = query.Where("prep_time_minutes <= ?", maxPrepMinutes)
	}

	var models []RecipeModel
	if err := query.Order("anti_inflammatory_score DESC, title ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return toRecipes(models), nil
}

// BulkCreate creates multiple recipes
func (r *RecipeRepository) BulkCreate(ctx context.Context, recipes []*recipe.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	models := make([]*RecipeModel, len(recipes))
	for i, rec := range recipes {
		models[i] = RecipeToModel(rec)
	}

	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

// AddFavorite marks a recipe as a favorite; repeated calls are no-ops
func (r *RecipeRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&FavoriteModel{UserID: userID, RecipeID: recipeID, CreatedAt: time.Now().UTC()}).Error
}

// RemoveFavorite unmarks a favorite
func (r *RecipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&FavoriteModel{}).Error
}

// IsFavorite reports whether the user favorited the recipe
func (r *RecipeRepository) IsFavorite(ctx context.Context, userID, recipeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FavoriteModel{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	return count > 0, err
}

// ListFavorites returns the user's published favorites, most recent first
func (r *RecipeRepository) ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.Recipe, int64, error) {
	query := r.db.WithContext(ctx).Model(&RecipeModel{}).
		Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
		Where("favorites.user_id = ? AND recipes.status = ?", userID, string(recipe.RecipeStatusPublished)).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []RecipeModel
	result := query.
		Order("favorites.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return toRecipes(models), total, nil
}

func toRecipes(models []RecipeModel) []*recipe.Recipe {
	recipes := make([]*recipe.Recipe, len(models))
	for i := range models {
		recipes[i] = ModelToRecipe(&models[i])
	}
	return recipes
}

// jsonElementPattern matches a string element inside a JSON array column
func jsonElementPattern(value string) string {
	return `%"` + strings.ReplaceAll(value, `"`, "") + `"%`
}

func recipeOrder(orderBy, orderDir string) string {
	direction := "ASC"
	if strings.EqualFold(orderDir, "desc") {
		direction = "DESC"
	}

	switch orderBy {
	case "title":
		return fmt.Sprintf("title %s", direction)
	case "score", "anti_inflammatory_score":
		return fmt.Sprintf("anti_inflammatory_score %s, title ASC", direction)
	case "prep_time":
		return fmt.Sprintf("prep_time_minutes %s, title ASC", direction)
	case "created_at":
		return fmt.Sprintf("created_at %s", direction)
	default:
		return "anti_inflammatory_score DESC, created_at DESC"
	}
}
