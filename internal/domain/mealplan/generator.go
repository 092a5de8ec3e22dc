// Package mealplan builds weekly meal plans from the recipe catalog.
//
// Generation is a greedy pass over day x meal-type slots: each slot draws one
// recipe uniformly at random from the pool entries that fit the slot and meet
// the anti-inflammatory threshold. Portions are scaled toward a per-meal
// calorie target.
package mealplan

import (
	"math"
	"math/rand/v2"

	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

const (
	// MinSlotScore is the anti-inflammatory score a recipe needs to fill a slot
	MinSlotScore = 6
	// DefaultDailyCalories is used when the user has no caloric profile
	DefaultDailyCalories = 2000
	MinServings          = 0.5
	MaxServings          = 3.0
)

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Preferences selects which slots get filled
type Preferences struct {
	MealTypes   []recipe.MealType
	CookingDays []shared.Day
}

// Profile carries the caloric needs used for portioning
type Profile struct {
	DailyCalories int
}

// Generator produces weekly meal assignments
type Generator struct {
	picker Picker
}

// NewGenerator creates a generator; a nil picker uses the global source
func NewGenerator(picker Picker) *Generator {
	if picker == nil {
		picker = globalPicker{}
	}
	return &Generator{picker: picker}
}

// GenerateWeeklyMeals fills every cooking day's slots from pool.
// The result always has all seven days; days outside CookingDays and
// slots without a qualifying recipe are left empty.
func (g *Generator) GenerateWeeklyMeals(pool []*recipe.Recipe, prefs Preferences, profile *Profile) WeeklyMeals {
	meals := NewWeeklyMeals()
	if len(prefs.MealTypes) == 0 {
		return meals
	}

	target := PerMealCalorieTarget(profile, len(prefs.MealTypes))
	candidates := candidatesBySlot(pool, prefs.MealTypes)
	cooking := cookingDaySet(prefs.CookingDays)

	for _, day := range shared.Week {
		if !cooking[day] {
			continue
		}
		for _, slot := range prefs.MealTypes {
			options := candidates[slot]
			if len(options) == 0 {
				continue
			}
			chosen := options[g.picker.IntN(len(options))]
			meals[day][slot] = NewPlannedMeal(chosen, slot, ServingsFor(target, chosen.Nutrition().Calories))
		}
	}

	return meals
}

// PickReplacement draws a recipe for one slot, avoiding exclude when another option exists
func (g *Generator) PickReplacement(pool []*recipe.Recipe, slot recipe.MealType, exclude *recipe.Recipe) (*recipe.Recipe, bool) {
	options := candidatesBySlot(pool, []recipe.MealType{slot})[slot]
	if exclude != nil && len(options) > 1 {
		filtered := options[:0:0]
		for _, r := range options {
			if r.ID() != exclude.ID() {
				filtered = append(filtered, r)
			}
		}
		options = filtered
	}
	if len(options) == 0 {
		return nil, false
	}
	return options[g.picker.IntN(len(options))], true
}

// PerMealCalorieTarget splits the daily target evenly over the planned meal types
func PerMealCalorieTarget(profile *Profile, mealsPerDay int) float64 {
	daily := DefaultDailyCalories
	if profile != nil && profile.DailyCalories > 0 {
		daily = profile.DailyCalories
	}
	if mealsPerDay <= 0 {
		mealsPerDay = 1
	}
	return float64(daily) / float64(mealsPerDay)
}

// ServingsFor returns target / caloriesPerServing rounded to the nearest
// half serving and clamped to [MinServings, MaxServings]. Recipes without
// calorie data get a single serving.
func ServingsFor(target, caloriesPerServing float64) float64 {
	if caloriesPerServing <= 0 || target <= 0 {
		return 1
	}
	servings := math.Round(target/caloriesPerServing*2) / 2
	return math.Min(MaxServings, math.Max(MinServings, servings))
}

// Qualifies reports whether r may fill slot
func Qualifies(r *recipe.Recipe, slot recipe.MealType) bool {
	return r != nil && r.HasMealType(slot) && r.AntiInflammatoryScore() >= MinSlotScore
}

func candidatesBySlot(pool []*recipe.Recipe, slots []recipe.MealType) map[recipe.MealType][]*recipe.Recipe {
	out := make(map[recipe.MealType][]*recipe.Recipe, len(slots))
	for _, slot := range slots {
		if _, done := out[slot]; done {
			continue
		}
		var options []*recipe.Recipe
		for _, r := range pool {
			if Qualifies(r, slot) {
				options = append(options, r)
			}
		}
		out[slot] = options
	}
	return out
}

func cookingDaySet(days []shared.Day) map[shared.Day]bool {
	set := make(map[shared.Day]bool, len(shared.Week))
	if len(days) == 0 {
		for _, d := range shared.Week {
			set[d] = true
		}
		return set
	}
	for _, d := range days {
		set[d] = true
	}
	return set
}
