package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/ports/outbound"
)

// NutritionService defines food logging and scoring use cases
type NutritionService interface {
	LogFood(ctx context.Context, userID uuid.UUID, cmd LogFoodCommand) (*FoodLogEntryDTO, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error
	DailySummary(ctx context.Context, userID uuid.UUID, date time.Time) (*DailySummaryDTO, error)
	WeeklyTrends(ctx context.Context, userID uuid.UUID, end time.Time) (*WeeklyTrendDTO, error)
	GetGoals(ctx context.Context, userID uuid.UUID) (*GoalsDTO, error)
	SetGoals(ctx context.Context, userID uuid.UUID, cmd SetGoalsCommand) (*GoalsDTO, error)
	LookupFood(ctx context.Context, query FoodLookupQuery) ([]outbound.FoodItem, error)
}

// LogFoodCommand records an entry either from a recipe or from free-form values
type LogFoodCommand struct {
	Date     string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
	MealType string     `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	RecipeID *uuid.UUID `json:"recipe_id"`
	Name     string     `json:"name" validate:"required_without=RecipeID,max=200"`
	Servings float64    `json:"servings" validate:"required,gt=0,lte=20"`
	Macros   *MacrosDTO `json:"macros" validate:"required_without=RecipeID"`
	Score    int        `json:"anti_inflammatory_score" validate:"omitempty,min=1,max=10"`
}

// DateQuery selects a day; empty means today
type DateQuery struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SetGoalsCommand replaces the user's daily goals
type SetGoalsCommand struct {
	Calories float64 `json:"calories" validate:"gte=0,lte=10000"`
	Protein  float64 `json:"protein" validate:"gte=0,lte=1000"`
	Carbs    float64 `json:"carbs" validate:"gte=0,lte=2000"`
	Fat      float64 `json:"fat" validate:"gte=0,lte=1000"`
	MinScore float64 `json:"min_score" validate:"gte=0,lte=10"`
}

// FoodLookupQuery searches the food database
type FoodLookupQuery struct {
	Query string `json:"query" validate:"required,min=2,max=100"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=25"`
}

// MacrosDTO carries per-serving macros
type MacrosDTO struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
	Fiber    float64 `json:"fiber" validate:"gte=0"`
}

// FoodLogEntryDTO is a logged food
type FoodLogEntryDTO struct {
	ID         uuid.UUID  `json:"id"`
	Date       string     `json:"date"`
	MealType   string     `json:"meal_type"`
	RecipeID   *uuid.UUID `json:"recipe_id,omitempty"`
	Name       string     `json:"name"`
	Servings   float64    `json:"servings"`
	PerServing MacrosDTO  `json:"per_serving"`
	Total      MacrosDTO  `json:"total"`
	Score      int        `json:"anti_inflammatory_score,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AdherenceDTO is percent of goal per macro; absent when no goal is set
type AdherenceDTO struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

// DailySummaryDTO is a scored day
type DailySummaryDTO struct {
	Date         string            `json:"date"`
	Totals       MacrosDTO         `json:"totals"`
	EntryCount   int               `json:"entry_count"`
	AverageScore float64           `json:"average_score"`
	Adherence    AdherenceDTO      `json:"adherence"`
	Score        int               `json:"score"`
	MeetsMinimum bool              `json:"meets_minimum"`
	Entries      []FoodLogEntryDTO `json:"entries,omitempty"`
}

// WeeklyTrendDTO is a seven-day series
type WeeklyTrendDTO struct {
	Start           string            `json:"start"`
	End             string            `json:"end"`
	Days            []DailySummaryDTO `json:"days"`
	AverageCalories float64           `json:"average_calories"`
	AverageScore    float64           `json:"average_score"`
	AverageDayScore float64           `json:"average_day_score"`
	DaysLogged      int               `json:"days_logged"`
}

// GoalsDTO mirrors nutrition goals
type GoalsDTO struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	MinScore float64 `json:"min_score"`
	// Suggested is true when no goals are stored and these derive from the profile
	Suggested bool `json:"suggested"`
}

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"
