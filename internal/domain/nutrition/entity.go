// Package nutrition tracks what users eat and scores each day against their goals.
package nutrition

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Macros is a set of energy and macronutrient values
type Macros struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    float64
}

func (m Macros) scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
	}
}

func (m Macros) add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
	}
}

func (m Macros) valid() bool {
	return m.Calories >= 0 && m.Protein >= 0 && m.Carbs >= 0 && m.Fat >= 0 && m.Fiber >= 0
}

// FromRecipe converts recipe per-serving nutrition into macros
func FromRecipe(n recipe.NutritionInfo) Macros {
	return Macros{
		Calories: n.Calories,
		Protein:  n.Protein,
		Carbs:    n.Carbohydrates,
		Fat:      n.Fat,
		Fiber:    n.Fiber,
	}
}

// FoodLogEntry is one item a user ate
type FoodLogEntry struct {
	id         uuid.UUID
	userID     uuid.UUID
	date       time.Time
	mealType   recipe.MealType
	recipeID   *uuid.UUID
	name       string
	servings   float64
	perServing Macros
	score      int
	createdAt  time.Time
}

// NewFoodLogEntry validates and creates an entry for the given day
func NewFoodLogEntry(userID uuid.UUID, date time.Time, mealType recipe.MealType, name string, servings float64, perServing Macros, score int) (*FoodLogEntry, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, ErrInvalidName
	}
	if !mealType.Valid() {
		return nil, recipe.ErrInvalidMealType
	}
	if servings <= 0 || servings > 20 {
		return nil, ErrInvalidServings
	}
	if !perServing.valid() {
		return nil, ErrNegativeNutrient
	}
	if score != 0 {
		if err := recipe.ValidateScore(score); err != nil {
			return nil, err
		}
	}

	return &FoodLogEntry{
		id:         uuid.New(),
		userID:     userID,
		date:       shared.DateOf(date),
		mealType:   mealType,
		name:       name,
		servings:   servings,
		perServing: perServing,
		score:      score,
		createdAt:  time.Now().UTC(),
	}, nil
}

// NewEntryFromRecipe logs servings of a catalog recipe
func NewEntryFromRecipe(userID uuid.UUID, date time.Time, mealType recipe.MealType, r *recipe.Recipe, servings float64) (*FoodLogEntry, error) {
	e, err := NewFoodLogEntry(userID, date, mealType, r.Title(), servings, FromRecipe(r.Nutrition()), r.AntiInflammatoryScore())
	if err != nil {
		return nil, err
	}
	id := r.ID()
	e.recipeID = &id
	return e, nil
}

// EntrySnapshot carries the persisted state of an entry
type EntrySnapshot struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Date       time.Time
	MealType   recipe.MealType
	RecipeID   *uuid.UUID
	Name       string
	Servings   float64
	PerServing Macros
	Score      int
	CreatedAt  time.Time
}

// ReconstructEntry rebuilds an entry from storage
func ReconstructEntry(s EntrySnapshot) *FoodLogEntry {
	return &FoodLogEntry{
		id:         s.ID,
		userID:     s.UserID,
		date:       s.Date,
		mealType:   s.MealType,
		recipeID:   s.RecipeID,
		name:       s.Name,
		servings:   s.Servings,
		perServing: s.PerServing,
		score:      s.Score,
		createdAt:  s.CreatedAt,
	}
}

func (e *FoodLogEntry) ID() uuid.UUID             { return e.id }
func (e *FoodLogEntry) UserID() uuid.UUID         { return e.userID }
func (e *FoodLogEntry) Date() time.Time           { return e.date }
func (e *FoodLogEntry) MealType() recipe.MealType { return e.mealType }
func (e *FoodLogEntry) RecipeID() *uuid.UUID      { return e.recipeID }
func (e *FoodLogEntry) Name() string              { return e.name }
func (e *FoodLogEntry) Servings() float64         { return e.servings }
func (e *FoodLogEntry) PerServing() Macros        { return e.perServing }
func (e *FoodLogEntry) Score() int                { return e.score }
func (e *FoodLogEntry) CreatedAt() time.Time      { return e.createdAt }

// Total returns the nutrition eaten for this entry
func (e *FoodLogEntry) Total() Macros {
	return e.perServing.scale(e.servings)
}

// Event returns the logged event for this entry
func (e *FoodLogEntry) Event() FoodLoggedEvent {
	return FoodLoggedEvent{
		EntryID:  e.id,
		UserID:   e.userID,
		Date:     e.date,
		Calories: e.Total().Calories,
		LoggedAt: e.createdAt,
	}
}

// Goals are a user's daily targets; zero values mean "no target"
type Goals struct {
	UserID   uuid.UUID
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	MinScore float64
}

// Validate validates the goals
func (g Goals) Validate() error {
	if g.Calories < 0 || g.Protein < 0 || g.Carbs < 0 || g.Fat < 0 {
		return ErrInvalidGoals
	}
	if g.MinScore < 0 || g.MinScore > recipe.MaxScore {
		return ErrInvalidGoals
	}
	return nil
}

// HasMacroTargets reports whether any macro target is set
func (g Goals) HasMacroTargets() bool {
	return g.Calories > 0 || g.Protein > 0 || g.Carbs > 0 || g.Fat > 0
}
