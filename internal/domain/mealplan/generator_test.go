package mealplan

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firstPicker struct{ calls int }

func (p *firstPicker) IntN(int) int {
	p.calls++
	return 0
}

func newRecipe(t *testing.T, title string, score int, calories float64, mealTypes ...recipe.MealType) *recipe.Recipe {
	t.Helper()
	r, err := recipe.NewRecipe(title, "", uuid.New())
	require.NoError(t, err)
	require.NoError(t, r.SetMealTypes(mealTypes))
	require.NoError(t, r.SetAntiInflammatoryScore(score))
	require.NoError(t, r.SetTiming(15*time.Minute, 10*time.Minute))
	require.NoError(t, r.SetNutrition(recipe.NutritionInfo{
		Calories:      calories,
		Protein:       calories / 20,
		Carbohydrates: calories / 8,
		Fat:           calories / 30,
	}))
	return r
}

func testPool(t *testing.T) []*recipe.Recipe {
	return []*recipe.Recipe{
		newRecipe(t, "Berry Chia Pudding", 8, 320, recipe.MealTypeBreakfast, recipe.MealTypeSnack),
		newRecipe(t, "Spinach Omelette", 7, 410, recipe.MealTypeBreakfast),
		newRecipe(t, "Sugary Cereal", 2, 380, recipe.MealTypeBreakfast),
		newRecipe(t, "Lentil Salad", 9, 520, recipe.MealTypeLunch, recipe.MealTypeDinner),
		newRecipe(t, "Salmon Bowl", 10, 640, recipe.MealTypeDinner),
		newRecipe(t, "Fried Chicken", 3, 900, recipe.MealTypeDinner),
		newRecipe(t, "Walnuts", 6, 0, recipe.MealTypeSnack),
	}
}

func TestGenerateWeeklyMeals_Properties(t *testing.T) {
	pool := testPool(t)
	prefs := Preferences{MealTypes: recipe.AllMealTypes}
	profiles := []*Profile{nil, {DailyCalories: 1400}, {DailyCalories: 3200}, {DailyCalories: 9000}}

	for seed := uint64(0); seed < 50; seed++ {
		gen := NewGenerator(rand.New(rand.NewPCG(seed, seed*31+7)))
		profile := profiles[seed%uint64(len(profiles))]

		meals := gen.GenerateWeeklyMeals(pool, prefs, profile)

		require.Len(t, meals, 7)
		for _, day := range shared.Week {
			_, ok := meals[day]
			require.True(t, ok, "missing day %s", day)
		}

		var want WeeklyNutrition
		meals.Each(func(day shared.Day, slot recipe.MealType, m PlannedMeal) {
			assert.True(t, m.Fits(slot), "%s/%s got %q", day, slot, m.Title)
			assert.GreaterOrEqual(t, m.AntiInflammatoryScore, MinSlotScore)
			assert.GreaterOrEqual(t, m.Servings, MinServings)
			assert.LessOrEqual(t, m.Servings, MaxServings)

			want.TotalCalories += m.PerServing.Calories * m.Servings
			want.TotalProtein += m.PerServing.Protein * m.Servings
			want.TotalCarbs += m.PerServing.Carbohydrates * m.Servings
			want.TotalFat += m.PerServing.Fat * m.Servings
		})

		got := CalculateWeeklyNutrition(meals)
		assert.InDelta(t, want.TotalCalories, got.TotalCalories, 1e-6)
		assert.InDelta(t, want.TotalProtein, got.TotalProtein, 1e-6)
		assert.InDelta(t, want.TotalCarbs, got.TotalCarbs, 1e-6)
		assert.InDelta(t, want.TotalFat, got.TotalFat, 1e-6)
		assert.InDelta(t, got.TotalCalories/7, got.DailyCalories, 1e-9)
		assert.Equal(t, 28, got.MealCount)
	}
}

func TestGenerateWeeklyMeals_FiltersLowScores(t *testing.T) {
	pool := testPool(t)
	gen := NewGenerator(&firstPicker{})

	meals := gen.GenerateWeeklyMeals(pool, Preferences{MealTypes: []recipe.MealType{recipe.MealTypeBreakfast, recipe.MealTypeDinner}}, nil)

	meals.Each(func(_ shared.Day, _ recipe.MealType, m PlannedMeal) {
		assert.NotEqual(t, "Sugary Cereal", m.Title)
		assert.NotEqual(t, "Fried Chicken", m.Title)
	})
	assert.Equal(t, "Berry Chia Pudding", meals[shared.Monday][recipe.MealTypeBreakfast].Title)
	assert.Equal(t, "Lentil Salad", meals[shared.Sunday][recipe.MealTypeDinner].Title)
}

func TestGenerateWeeklyMeals_EmptySlotsWhenNoCandidate(t *testing.T) {
	pool := []*recipe.Recipe{newRecipe(t, "Lentil Salad", 9, 520, recipe.MealTypeLunch)}
	picker := &firstPicker{}
	gen := NewGenerator(picker)

	meals := gen.GenerateWeeklyMeals(pool, Preferences{MealTypes: []recipe.MealType{recipe.MealTypeBreakfast, recipe.MealTypeLunch}}, nil)

	assert.Len(t, meals, 7)
	assert.Equal(t, 7, meals.Count())
	for _, day := range shared.Week {
		_, hasBreakfast := meals[day][recipe.MealTypeBreakfast]
		assert.False(t, hasBreakfast)
	}
	assert.Equal(t, 7, picker.calls)
}

func TestGenerateWeeklyMeals_CookingDays(t *testing.T) {
	gen := NewGenerator(&firstPicker{})
	prefs := Preferences{
		MealTypes:   []recipe.MealType{recipe.MealTypeDinner},
		CookingDays: []shared.Day{shared.Tuesday, shared.Saturday},
	}

	meals := gen.GenerateWeeklyMeals(testPool(t), prefs, nil)

	require.Len(t, meals, 7)
	assert.Equal(t, 2, meals.Count())
	assert.Empty(t, meals[shared.Monday])
	assert.Len(t, meals[shared.Tuesday], 1)
	assert.Len(t, meals[shared.Saturday], 1)
}

func TestGenerateWeeklyMeals_NoMealTypes(t *testing.T) {
	meals := NewGenerator(nil).GenerateWeeklyMeals(testPool(t), Preferences{}, nil)

	assert.Len(t, meals, 7)
	assert.Zero(t, meals.Count())
}

func TestGenerateWeeklyMeals_ServingsFollowProfile(t *testing.T) {
	pool := []*recipe.Recipe{newRecipe(t, "Salmon Bowl", 10, 500, recipe.MealTypeDinner)}
	gen := NewGenerator(&firstPicker{})
	prefs := Preferences{MealTypes: []recipe.MealType{recipe.MealTypeDinner, recipe.MealTypeLunch}}

	// 2000 default / 2 meal types = 1000 per meal, 1000/500 = 2 servings
	meals := gen.GenerateWeeklyMeals(pool, prefs, nil)
	assert.Equal(t, 2.0, meals[shared.Monday][recipe.MealTypeDinner].Servings)

	// 1500 / 2 = 750, 750/500 = 1.5
	meals = gen.GenerateWeeklyMeals(pool, prefs, &Profile{DailyCalories: 1500})
	assert.Equal(t, 1.5, meals[shared.Monday][recipe.MealTypeDinner].Servings)

	// zero calories in profile falls back to the default
	meals = gen.GenerateWeeklyMeals(pool, prefs, &Profile{})
	assert.Equal(t, 2.0, meals[shared.Monday][recipe.MealTypeDinner].Servings)
}

func TestServingsFor(t *testing.T) {
	tests := []struct {
		name     string
		target   float64
		calories float64
		want     float64
	}{
		{"exact", 600, 600, 1},
		{"rounds down to half", 600, 520, 1.0},
		{"rounds up to half", 700, 500, 1.5},
		{"half way rounds away from zero", 625, 500, 1.5},
		{"clamps low", 100, 900, 0.5},
		{"clamps high", 2000, 200, 3},
		{"zero calories", 600, 0, 1},
		{"negative calories", 600, -10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServingsFor(tt.target, tt.calories))
		})
	}
}

func TestPickReplacement(t *testing.T) {
	a := newRecipe(t, "Lentil Salad", 9, 520, recipe.MealTypeLunch)
	b := newRecipe(t, "Quinoa Bowl", 8, 480, recipe.MealTypeLunch)
	gen := NewGenerator(&firstPicker{})

	got, ok := gen.PickReplacement([]*recipe.Recipe{a, b}, recipe.MealTypeLunch, a)
	require.True(t, ok)
	assert.Equal(t, b.ID(), got.ID())

	got, ok = gen.PickReplacement([]*recipe.Recipe{a}, recipe.MealTypeLunch, a)
	require.True(t, ok)
	assert.Equal(t, a.ID(), got.ID())

	_, ok = gen.PickReplacement([]*recipe.Recipe{a}, recipe.MealTypeDinner, nil)
	assert.False(t, ok)
}
