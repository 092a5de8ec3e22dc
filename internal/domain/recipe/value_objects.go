package recipe

import (
	"errors"
	"strings"
)

// Value Objects - Immutable objects that describe aspects of the domain

// MealType is the slot of the day a recipe is suitable for
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// AllMealTypes lists meal types in the order they are served during a day
var AllMealTypes = []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack}

// Valid reports whether the meal type is known
func (m MealType) Valid() bool {
	switch m {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner, MealTypeSnack:
		return true
	}
	return false
}

// ParseMealType parses a meal type case-insensitively
func ParseMealType(s string) (MealType, error) {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMealType
	}
	return m, nil
}

// Score bounds for the anti-inflammatory rating
const (
	MinScore = 1
	MaxScore = 10
)

// ValidateScore checks an anti-inflammatory score is within 1..10
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return ErrInvalidScore
	}
	return nil
}

// NutritionInfo contains nutritional information for a single serving
type NutritionInfo struct {
	Calories      float64
	Protein       float64 // in grams
	Carbohydrates float64 // in grams
	Fat           float64 // in grams
	Fiber         float64 // in grams
	Sugar         float64 // in grams
	Sodium        float64 // in milligrams
}

// Validate validates the nutrition info
func (n NutritionInfo) Validate() error {
	if n.Calories < 0 || n.Protein < 0 || n.Carbohydrates < 0 || n.Fat < 0 ||
		n.Fiber < 0 || n.Sugar < 0 || n.Sodium < 0 {
		return ErrNegativeNutrient
	}
	return nil
}

// Scale multiplies every nutrient by factor
func (n NutritionInfo) Scale(factor float64) NutritionInfo {
	return NutritionInfo{
		Calories:      n.Calories * factor,
		Protein:       n.Protein * factor,
		Carbohydrates: n.Carbohydrates * factor,
		Fat:           n.Fat * factor,
		Fiber:         n.Fiber * factor,
		Sugar:         n.Sugar * factor,
		Sodium:        n.Sodium * factor,
	}
}

// Ingredient represents an ingredient in a recipe
type Ingredient struct {
	Name     string
	Amount   float64
	Unit     string
	Optional bool
}

// Validate validates the ingredient
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("ingredient name is required")
	}
	if i.Amount < 0 {
		return errors.New("ingredient amount cannot be negative")
	}
	return nil
}

// Instruction represents a cooking instruction step
type Instruction struct {
	StepNumber  int
	Description string
}

// Validate validates the instruction
func (i Instruction) Validate() error {
	if strings.TrimSpace(i.Description) == "" {
		return errors.New("instruction description is required")
	}
	if len(i.Description) > 1000 {
		return errors.New("instruction description too long")
	}
	return nil
}

// RecipeStatus represents the status of a recipe
type RecipeStatus string

const (
	RecipeStatusDraft     RecipeStatus = "draft"
	RecipeStatusPublished RecipeStatus = "published"
	RecipeStatusArchived  RecipeStatus = "archived"
)
