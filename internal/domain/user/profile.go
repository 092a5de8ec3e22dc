package user

import (
	"math"

	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Sex is used for basal metabolic rate estimation
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// ActivityLevel scales basal metabolic rate into daily energy needs
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// Goal is the weight goal that adjusts the calorie target
type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// MinDailyCalories is the floor applied to computed targets
const MinDailyCalories = 1200

// Profile holds body metrics used to estimate caloric needs
type Profile struct {
	Age                int
	Sex                Sex
	HeightCm           float64
	WeightKg           float64
	ActivityLevel      ActivityLevel
	Goal               Goal
	DailyCalorieTarget int
}

// Validate validates the profile values that are present
func (p Profile) Validate() error {
	if p.Age < 0 || p.Age > 120 {
		return ErrInvalidProfile
	}
	if p.HeightCm < 0 || p.HeightCm > 260 || p.WeightKg < 0 || p.WeightKg > 400 {
		return ErrInvalidProfile
	}
	if p.Sex != "" && p.Sex != SexFemale && p.Sex != SexMale {
		return ErrInvalidProfile
	}
	if _, ok := activityFactors[p.ActivityLevel]; p.ActivityLevel != "" && !ok {
		return ErrInvalidProfile
	}
	switch p.Goal {
	case "", GoalLose, GoalMaintain, GoalGain:
	default:
		return ErrInvalidProfile
	}
	if p.DailyCalorieTarget < 0 || p.DailyCalorieTarget > 10000 {
		return ErrInvalidProfile
	}
	return nil
}

// CaloricNeeds returns the daily calorie target, or 0 when it cannot be estimated.
// An explicit target wins; otherwise Mifflin-St Jeor BMR times the activity
// factor, adjusted for the goal.
func (p Profile) CaloricNeeds() int {
	if p.DailyCalorieTarget > 0 {
		return p.DailyCalorieTarget
	}

	factor, ok := activityFactors[p.ActivityLevel]
	if !ok || p.Age <= 0 || p.HeightCm <= 0 || p.WeightKg <= 0 {
		return 0
	}

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch p.Sex {
	case SexMale:
		bmr += 5
	case SexFemale:
		bmr -= 161
	default:
		return 0
	}

	needs := bmr * factor
	switch p.Goal {
	case GoalLose:
		needs -= 500
	case GoalGain:
		needs += 300
	}

	return int(math.Max(MinDailyCalories, math.Round(needs)))
}

// Preferences controls what the meal planner produces
type Preferences struct {
	MealTypes           []recipe.MealType
	CookingDays         []shared.Day
	MaxPrepMinutes      int
	DietaryRestrictions []string
	Allergies           []string
}

// DefaultPreferences plans three meals every day
func DefaultPreferences() Preferences {
	return Preferences{
		MealTypes: []recipe.MealType{recipe.MealTypeBreakfast, recipe.MealTypeLunch, recipe.MealTypeDinner},
	}
}

// Validate validates the preferences
func (p Preferences) Validate() error {
	if len(p.MealTypes) == 0 {
		return ErrNoMealTypes
	}
	seenMeals := make(map[recipe.MealType]bool, len(p.MealTypes))
	for _, m := range p.MealTypes {
		if !m.Valid() {
			return recipe.ErrInvalidMealType
		}
		if seenMeals[m] {
			return ErrDuplicatePreference
		}
		seenMeals[m] = true
	}
	seenDays := make(map[shared.Day]bool, len(p.CookingDays))
	for _, d := range p.CookingDays {
		if d.Offset() < 0 {
			return shared.ErrInvalidDay
		}
		if seenDays[d] {
			return ErrDuplicatePreference
		}
		seenDays[d] = true
	}
	if p.MaxPrepMinutes < 0 {
		return ErrInvalidPreferences
	}
	return nil
}
