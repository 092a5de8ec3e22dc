package mealplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// PlannedMeal is a recipe assigned to a slot, with the nutrition values
// captured at planning time so later recipe edits do not shift plan totals.
type PlannedMeal struct {
	RecipeID              uuid.UUID
	Title                 string
	MealType              recipe.MealType
	MealTypes             []recipe.MealType
	Servings              float64
	AntiInflammatoryScore int
	PrepTime              time.Duration
	PerServing            recipe.NutritionInfo
}

// NewPlannedMeal snapshots r for the given slot
func NewPlannedMeal(r *recipe.Recipe, slot recipe.MealType, servings float64) PlannedMeal {
	mealTypes := make([]recipe.MealType, len(r.MealTypes()))
	copy(mealTypes, r.MealTypes())
	return PlannedMeal{
		RecipeID:              r.ID(),
		Title:                 r.Title(),
		MealType:              slot,
		MealTypes:             mealTypes,
		Servings:              servings,
		AntiInflammatoryScore: r.AntiInflammatoryScore(),
		PrepTime:              r.PrepTime(),
		PerServing:            r.Nutrition(),
	}
}

// Fits reports whether the recipe snapshot includes slot
func (m PlannedMeal) Fits(slot recipe.MealType) bool {
	for _, t := range m.MealTypes {
		if t == slot {
			return true
		}
	}
	return false
}

// Total returns the nutrition for the planned portion
func (m PlannedMeal) Total() recipe.NutritionInfo {
	return m.PerServing.Scale(m.Servings)
}

// DayMeals maps meal slots to planned meals; absent keys are empty slots
type DayMeals map[recipe.MealType]PlannedMeal

// WeeklyMeals maps each day of the week to its meals
type WeeklyMeals map[shared.Day]DayMeals

// NewWeeklyMeals returns a plan with all seven days and no meals
func NewWeeklyMeals() WeeklyMeals {
	w := make(WeeklyMeals, len(shared.Week))
	for _, d := range shared.Week {
		w[d] = DayMeals{}
	}
	return w
}

// Each visits filled slots in week order, then meal-type order
func (w WeeklyMeals) Each(fn func(day shared.Day, slot recipe.MealType, meal PlannedMeal)) {
	for _, day := range shared.Week {
		meals := w[day]
		for _, slot := range recipe.AllMealTypes {
			if meal, ok := meals[slot]; ok {
				fn(day, slot, meal)
			}
		}
	}
}

// Count returns the number of filled slots
func (w WeeklyMeals) Count() int {
	n := 0
	w.Each(func(shared.Day, recipe.MealType, PlannedMeal) { n++ })
	return n
}

// RecipeIDs returns the distinct recipes used in the plan
func (w WeeklyMeals) RecipeIDs() []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	w.Each(func(_ shared.Day, _ recipe.MealType, m PlannedMeal) {
		if !seen[m.RecipeID] {
			seen[m.RecipeID] = true
			ids = append(ids, m.RecipeID)
		}
	})
	return ids
}
