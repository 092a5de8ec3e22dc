package nutrition

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 5, 4, 9, 15, 0, 0, time.UTC)

func entry(t *testing.T, userID uuid.UUID, when time.Time, servings float64, m Macros, score int) *FoodLogEntry {
	t.Helper()
	e, err := NewFoodLogEntry(userID, when, recipe.MealTypeLunch, "test food", servings, m, score)
	require.NoError(t, err)
	return e
}

func TestNewFoodLogEntry_Validation(t *testing.T) {
	userID := uuid.New()
	ok := Macros{Calories: 100}

	_, err := NewFoodLogEntry(uuid.Nil, day, recipe.MealTypeLunch, "x", 1, ok, 0)
	assert.Equal(t, ErrMissingUser, err)

	_, err = NewFoodLogEntry(userID, day, recipe.MealTypeLunch, "  ", 1, ok, 0)
	assert.Equal(t, ErrInvalidName, err)

	_, err = NewFoodLogEntry(userID, day, "second-breakfast", "x", 1, ok, 0)
	assert.Equal(t, recipe.ErrInvalidMealType, err)

	_, err = NewFoodLogEntry(userID, day, recipe.MealTypeLunch, "x", 0, ok, 0)
	assert.Equal(t, ErrInvalidServings, err)

	_, err = NewFoodLogEntry(userID, day, recipe.MealTypeLunch, "x", 1, Macros{Fat: -1}, 0)
	assert.Equal(t, ErrNegativeNutrient, err)

	_, err = NewFoodLogEntry(userID, day, recipe.MealTypeLunch, "x", 1, ok, 11)
	assert.Equal(t, recipe.ErrInvalidScore, err)

	e, err := NewFoodLogEntry(userID, day, recipe.MealTypeLunch, "apple", 2, ok, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), e.Date())
	assert.Equal(t, 200.0, e.Total().Calories)
	assert.Equal(t, "nutrition.logged", e.Event().EventName())
}

func TestNewEntryFromRecipe(t *testing.T) {
	r, err := recipe.NewRecipe("Golden Milk Oats", "", uuid.New())
	require.NoError(t, err)
	require.NoError(t, r.SetAntiInflammatoryScore(9))
	require.NoError(t, r.SetNutrition(recipe.NutritionInfo{Calories: 350, Protein: 12, Carbohydrates: 55, Fat: 9, Fiber: 7}))

	e, err := NewEntryFromRecipe(uuid.New(), day, recipe.MealTypeBreakfast, r, 1.5)

	require.NoError(t, err)
	require.NotNil(t, e.RecipeID())
	assert.Equal(t, r.ID(), *e.RecipeID())
	assert.Equal(t, 9, e.Score())
	assert.InDelta(t, 525.0, e.Total().Calories, 1e-9)
	assert.InDelta(t, 10.5, e.Total().Fiber, 1e-9)
}

func TestSummarize(t *testing.T) {
	userID := uuid.New()
	entries := []*FoodLogEntry{
		entry(t, userID, day, 2, Macros{Calories: 250, Protein: 20, Carbs: 30, Fat: 10}, 8),
		entry(t, userID, day, 1, Macros{Calories: 500, Protein: 10, Carbs: 70, Fat: 20}, 4),
		entry(t, userID, day, 1, Macros{Calories: 0}, 0),
	}

	t.Run("on target", func(t *testing.T) {
		goals := &Goals{Calories: 1000, Protein: 50, MinScore: 5}

		s := Summarize(day, entries, goals)

		assert.Equal(t, 3, s.EntryCount)
		assert.InDelta(t, 1000.0, s.Totals.Calories, 1e-9)
		assert.InDelta(t, 50.0, s.Totals.Protein, 1e-9)
		assert.InDelta(t, 6.0, s.AverageScore, 1e-9)
		require.NotNil(t, s.Adherence.Calories)
		assert.InDelta(t, 100.0, *s.Adherence.Calories, 1e-9)
		assert.Nil(t, s.Adherence.Carbs)
		assert.Equal(t, 84, s.Score)
		assert.True(t, s.MeetsMinimum)
	})

	t.Run("overshoot halves macro credit", func(t *testing.T) {
		goals := &Goals{Calories: 500, Protein: 50, MinScore: 7}

		s := Summarize(day, entries, goals)

		assert.Equal(t, 54, s.Score)
		assert.False(t, s.MeetsMinimum)
	})

	t.Run("no goals uses anti-inflammatory component", func(t *testing.T) {
		s := Summarize(day, entries, nil)

		assert.Equal(t, 60, s.Score)
		assert.True(t, s.MeetsMinimum)
	})

	t.Run("no entries", func(t *testing.T) {
		s := Summarize(day, nil, &Goals{Calories: 2000})

		assert.Zero(t, s.Score)
		assert.Zero(t, s.AverageScore)
		assert.Zero(t, s.EntryCount)
	})

	t.Run("zero calorie entries fall back to plain mean", func(t *testing.T) {
		water := []*FoodLogEntry{
			entry(t, userID, day, 1, Macros{}, 10),
			entry(t, userID, day, 1, Macros{}, 6),
		}

		s := Summarize(day, water, nil)

		assert.InDelta(t, 8.0, s.AverageScore, 1e-9)
	})
}

func TestBuildWeeklyTrend(t *testing.T) {
	userID := uuid.New()
	end := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)
	entries := []*FoodLogEntry{
		entry(t, userID, end, 1, Macros{Calories: 1800}, 8),
		entry(t, userID, end.AddDate(0, 0, -2), 1, Macros{Calories: 2200}, 6),
		entry(t, userID, end.AddDate(0, 0, -9), 1, Macros{Calories: 5000}, 1),
	}

	trend := BuildWeeklyTrend(end, entries, nil)

	require.Len(t, trend.Days, 7)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), trend.Start)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), trend.End)
	assert.Equal(t, 2, trend.DaysLogged)
	assert.InDelta(t, 2000.0, trend.AverageCalories, 1e-9)
	assert.InDelta(t, 7.0, trend.AverageScore, 1e-9)
	assert.InDelta(t, 70.0, trend.AverageDayScore, 1e-9)
	assert.Zero(t, trend.Days[0].EntryCount)
}

func TestGoals_Validate(t *testing.T) {
	assert.NoError(t, Goals{Calories: 2000, MinScore: 6}.Validate())
	assert.Equal(t, ErrInvalidGoals, Goals{Calories: -1}.Validate())
	assert.Equal(t, ErrInvalidGoals, Goals{MinScore: 11}.Validate())
}
