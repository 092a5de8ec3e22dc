// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecipeService defines the use cases for the recipe catalog.
// Mutations are admin-only; the transport enforces the role.
type RecipeService interface {
	// Commands - operations that modify state
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error)
	PublishRecipe(ctx context.Context, recipeID uuid.UUID) (*RecipeDTO, error)
	ArchiveRecipe(ctx context.Context, recipeID uuid.UUID) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error

	// Favorites
	ToggleFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*FavoriteResult, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, params PaginationParams) (*RecipeList, error)

	// Queries - operations that read state
	GetRecipe(ctx context.Context, recipeID uuid.UUID, includeUnpublished bool) (*RecipeDTO, error)
	ListRecipes(ctx context.Context, query RecipeQuery) (*RecipeList, error)
}

// Command objects for operations

// CreateRecipeCommand contains data for creating a new recipe
type CreateRecipeCommand struct {
	AuthorID              uuid.UUID         `json:"-"`
	Title                 string            `json:"title" validate:"required,min=3,max=200"`
	Description           string            `json:"description" validate:"max=2000"`
	ImageURL              string            `json:"image_url" validate:"omitempty,url"`
	MealTypes             []string          `json:"meal_types" validate:"required,min=1,dive,oneof=breakfast lunch dinner snack"`
	AntiInflammatoryScore int               `json:"anti_inflammatory_score" validate:"required,min=1,max=10"`
	PrepMinutes           int               `json:"prep_minutes" validate:"min=0,max=1440"`
	CookMinutes           int               `json:"cook_minutes" validate:"min=0,max=1440"`
	Servings              int               `json:"servings" validate:"required,min=1,max=100"`
	Nutrition             NutritionDTO      `json:"nutrition"`
	Ingredients           []IngredientInput `json:"ingredients" validate:"dive"`
	Instructions          []string          `json:"instructions" validate:"dive,required"`
	Tags                  []string          `json:"tags" validate:"max=20,dive,min=1,max=40"`
	Publish               bool              `json:"publish"`
}

// UpdateRecipeCommand contains data for updating a recipe; nil fields are unchanged
type UpdateRecipeCommand struct {
	RecipeID              uuid.UUID          `json:"id" validate:"required"`
	Title                 *string            `json:"title" validate:"omitempty,min=3,max=200"`
	Description           *string            `json:"description" validate:"omitempty,max=2000"`
	ImageURL              *string            `json:"image_url" validate:"omitempty,url"`
	MealTypes             *[]string          `json:"meal_types" validate:"omitempty,min=1,dive,oneof=breakfast lunch dinner snack"`
	AntiInflammatoryScore *int               `json:"anti_inflammatory_score" validate:"omitempty,min=1,max=10"`
	PrepMinutes           *int               `json:"prep_minutes" validate:"omitempty,min=0,max=1440"`
	CookMinutes           *int               `json:"cook_minutes" validate:"omitempty,min=0,max=1440"`
	Servings              *int               `json:"servings" validate:"omitempty,min=1,max=100"`
	Nutrition             *NutritionDTO      `json:"nutrition"`
	Ingredients           *[]IngredientInput `json:"ingredients" validate:"omitempty,dive"`
	Instructions          *[]string          `json:"instructions" validate:"omitempty,dive,required"`
	Tags                  *[]string          `json:"tags" validate:"omitempty,max=20,dive,min=1,max=40"`
}

// IngredientInput for adding ingredients
type IngredientInput struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=20"`
	Optional bool    `json:"optional"`
}

// Query objects

// RecipeQuery filters the catalog
type RecipeQuery struct {
	MealType       string `json:"meal_type" validate:"omitempty,oneof=breakfast lunch dinner snack"`
	MinScore       int    `json:"min_score" validate:"omitempty,min=1,max=10"`
	MaxPrepMinutes int    `json:"max_prep_minutes" validate:"omitempty,min=1"`
	Search         string `json:"search" validate:"max=100"`
	Tag            string `json:"tag" validate:"max=40"`
	PaginationParams
	// IncludeUnpublished is set by the transport for admins
	IncludeUnpublished bool `json:"-"`
}

// PaginationParams for paginated queries
type PaginationParams struct {
	Page     int `json:"page" validate:"omitempty,min=1"`
	PageSize int `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// DefaultPageSize applies when PageSize is unset
const DefaultPageSize = 20

// Normalize fills defaults
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset returns the row offset of the page
func (p PaginationParams) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns the page count for total rows
func (p PaginationParams) TotalPages(total int64) int {
	p = p.Normalize()
	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Response DTOs

// RecipeDTO is the data transfer object for recipes
type RecipeDTO struct {
	ID                    uuid.UUID        `json:"id"`
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	AuthorID              uuid.UUID        `json:"author_id"`
	ImageURL              string           `json:"image_url,omitempty"`
	MealTypes             []string         `json:"meal_types"`
	AntiInflammatoryScore int              `json:"anti_inflammatory_score"`
	PrepMinutes           int              `json:"prep_minutes"`
	CookMinutes           int              `json:"cook_minutes"`
	TotalMinutes          int              `json:"total_minutes"`
	Servings              int              `json:"servings"`
	Nutrition             NutritionDTO     `json:"nutrition"`
	Ingredients           []IngredientDTO  `json:"ingredients"`
	Instructions          []InstructionDTO `json:"instructions"`
	Tags                  []string         `json:"tags"`
	Status                string           `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	PublishedAt           *time.Time       `json:"published_at,omitempty"`
}

// IngredientDTO for ingredient data
type IngredientDTO struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Optional bool    `json:"optional"`
}

// InstructionDTO for instruction data
type InstructionDTO struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
}

// NutritionDTO for per-serving nutrition information
type NutritionDTO struct {
	Calories      float64 `json:"calories" validate:"gte=0"`
	Protein       float64 `json:"protein" validate:"gte=0"`
	Carbohydrates float64 `json:"carbohydrates" validate:"gte=0"`
	Fat           float64 `json:"fat" validate:"gte=0"`
	Fiber         float64 `json:"fiber" validate:"gte=0"`
	Sugar         float64 `json:"sugar" validate:"gte=0"`
	Sodium        float64 `json:"sodium" validate:"gte=0"`
}

// RecipeList for paginated results
type RecipeList struct {
	Recipes    []RecipeDTO `json:"recipes"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// FavoriteResult reports the favorite state after a toggle
type FavoriteResult struct {
	RecipeID  uuid.UUID `json:"recipe_id"`
	Favorited bool      `json:"favorited"`
}

// IDInput addresses a single resource
type IDInput struct {
	ID uuid.UUID `json:"id" validate:"required"`
}
