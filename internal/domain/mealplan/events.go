package mealplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// MealPlanGeneratedEvent is raised when a new weekly plan is created
type MealPlanGeneratedEvent struct {
	PlanID      uuid.UUID `json:"plan_id"`
	UserID      uuid.UUID `json:"user_id"`
	WeekStart   time.Time `json:"week_start"`
	MealCount   int       `json:"meal_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (e MealPlanGeneratedEvent) EventName() string {
	return "mealplan.generated"
}

func (e MealPlanGeneratedEvent) OccurredAt() time.Time {
	return e.GeneratedAt
}

// Owner returns the user the event concerns
func (e MealPlanGeneratedEvent) Owner() uuid.UUID {
	return e.UserID
}

// MealSwappedEvent is raised when a single slot is replaced
type MealSwappedEvent struct {
	PlanID      uuid.UUID       `json:"plan_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Day         shared.Day      `json:"day"`
	MealType    recipe.MealType `json:"meal_type"`
	OldRecipeID uuid.UUID       `json:"old_recipe_id"`
	NewRecipeID uuid.UUID       `json:"new_recipe_id"`
	SwappedAt   time.Time       `json:"swapped_at"`
}

func (e MealSwappedEvent) EventName() string {
	return "mealplan.meal.swapped"
}

func (e MealSwappedEvent) OccurredAt() time.Time {
	return e.SwappedAt
}

// Owner returns the user the event concerns
func (e MealSwappedEvent) Owner() uuid.UUID {
	return e.UserID
}
