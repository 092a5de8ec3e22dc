package mealplan

import (
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// DaysPerWeek divides weekly totals into daily averages
const DaysPerWeek = 7

// WeeklyNutrition aggregates a plan's macros
type WeeklyNutrition struct {
	TotalCalories float64
	TotalProtein  float64
	TotalCarbs    float64
	TotalFat      float64

	DailyCalories float64
	DailyProtein  float64
	DailyCarbs    float64
	DailyFat      float64

	// AverageScore is the unweighted mean anti-inflammatory score of the planned meals
	AverageScore float64
	MealCount    int
}

// CalculateWeeklyNutrition sums per-serving values times servings over every
// filled slot and averages per day over the full week.
func CalculateWeeklyNutrition(meals WeeklyMeals) WeeklyNutrition {
	var (
		out      WeeklyNutrition
		scoreSum int
	)

	meals.Each(func(_ shared.Day, _ recipe.MealType, m PlannedMeal) {
		total := m.Total()
		out.TotalCalories += total.Calories
		out.TotalProtein += total.Protein
		out.TotalCarbs += total.Carbohydrates
		out.TotalFat += total.Fat
		scoreSum += m.AntiInflammatoryScore
		out.MealCount++
	})

	out.DailyCalories = out.TotalCalories / DaysPerWeek
	out.DailyProtein = out.TotalProtein / DaysPerWeek
	out.DailyCarbs = out.TotalCarbs / DaysPerWeek
	out.DailyFat = out.TotalFat / DaysPerWeek

	if out.MealCount > 0 {
		out.AverageScore = float64(scoreSum) / float64(out.MealCount)
	}

	return out
}
