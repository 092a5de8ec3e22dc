package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MealPlanService defines weekly planning use cases. All operations are
// scoped to the owning user.
type MealPlanService interface {
	Generate(ctx context.Context, userID uuid.UUID, cmd GenerateMealPlanCommand) (*MealPlanDTO, error)
	GetPlan(ctx context.Context, userID, planID uuid.UUID) (*MealPlanDTO, error)
	// CurrentPlan returns the plan for this week, falling back to the latest; nil when none exists
	CurrentPlan(ctx context.Context, userID uuid.UUID) (*MealPlanDTO, error)
	ListPlans(ctx context.Context, userID uuid.UUID, params PaginationParams) (*MealPlanList, error)
	DeletePlan(ctx context.Context, userID, planID uuid.UUID) error
	SwapMeal(ctx context.Context, userID uuid.UUID, cmd SwapMealCommand) (*MealPlanDTO, error)
}

// GenerateMealPlanCommand overrides stored preferences for one generation
type GenerateMealPlanCommand struct {
	// WeekOf is any date (YYYY-MM-DD) in the target week; empty means the current week
	WeekOf         string   `json:"week_of" validate:"omitempty,datetime=2006-01-02"`
	MealTypes      []string `json:"meal_types" validate:"omitempty,max=4,unique,dive,oneof=breakfast lunch dinner snack"`
	CookingDays    []string `json:"cooking_days" validate:"omitempty,max=7,unique,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	MaxPrepMinutes int      `json:"max_prep_minutes" validate:"omitempty,min=5,max=480"`
	SkipInsights   bool     `json:"skip_insights"`
}

// SwapMealCommand re-picks one slot of a plan
type SwapMealCommand struct {
	PlanID   uuid.UUID  `json:"plan_id" validate:"required"`
	Day      string     `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	MealType string     `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	RecipeID *uuid.UUID `json:"recipe_id"`
}

// MealPlanDTO is the data transfer object for meal plans
type MealPlanDTO struct {
	ID        uuid.UUID                            `json:"id"`
	UserID    uuid.UUID                            `json:"user_id"`
	WeekStart time.Time                            `json:"week_start"`
	Status    string                               `json:"status"`
	Meals     map[string]map[string]PlannedMealDTO `json:"meals"`
	Nutrition WeeklyNutritionDTO                   `json:"nutrition"`
	Insights  *InsightsDTO                         `json:"insights,omitempty"`
	CreatedAt time.Time                            `json:"created_at"`
	UpdatedAt time.Time                            `json:"updated_at"`
}

// PlannedMealDTO is one filled slot
type PlannedMealDTO struct {
	RecipeID              uuid.UUID    `json:"recipe_id"`
	Title                 string       `json:"title"`
	MealType              string       `json:"meal_type"`
	Servings              float64      `json:"servings"`
	AntiInflammatoryScore int          `json:"anti_inflammatory_score"`
	PrepMinutes           int          `json:"prep_minutes"`
	PerServing            NutritionDTO `json:"per_serving"`
}

// WeeklyNutritionDTO aggregates a plan's macros
type WeeklyNutritionDTO struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalFat      float64 `json:"total_fat"`
	DailyCalories float64 `json:"daily_calories"`
	DailyProtein  float64 `json:"daily_protein"`
	DailyCarbs    float64 `json:"daily_carbs"`
	DailyFat      float64 `json:"daily_fat"`
	AverageScore  float64 `json:"average_score"`
	MealCount     int     `json:"meal_count"`
}

// InsightsDTO carries coaching notes
type InsightsDTO struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
	Source  string   `json:"source"`
}

// MealPlanList for paginated results
type MealPlanList struct {
	Plans      []MealPlanDTO `json:"plans"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}
