// Package testutil provides test data factories and port mocks shared by package tests
package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/user"
)

// DefaultPassword is the password of every factory-built user
const DefaultPassword = "correct-horse-battery"

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	faker       *gofakeit.Faker
	title       string
	description string
	authorID    uuid.UUID
	mealTypes   []recipe.MealType
	score       int
	prepTime    time.Duration
	cookTime    time.Duration
	servings    int
	nutrition   recipe.NutritionInfo
	tags        []string
	publish     bool
}

// NewRecipeBuilder creates a builder with seeded, publishable defaults
func NewRecipeBuilder(seed int64) *RecipeBuilder {
	faker := gofakeit.New(seed)
	return &RecipeBuilder{
		faker:       faker,
		title:       fmt.Sprintf("%s %s", faker.AdjectiveDescriptive(), faker.Noun()),
		description: faker.Sentence(8),
		authorID:    uuid.New(),
		mealTypes:   []recipe.MealType{recipe.MealTypeDinner},
		score:       7,
		prepTime:    15 * time.Minute,
		cookTime:    20 * time.Minute,
		servings:    2,
		nutrition: recipe.NutritionInfo{
			Calories:      float64(faker.IntRange(250, 700)),
			Protein:       float64(faker.IntRange(10, 40)),
			Carbohydrates: float64(faker.IntRange(20, 80)),
			Fat:           float64(faker.IntRange(5, 30)),
			Fiber:         float64(faker.IntRange(2, 12)),
		},
		tags:    []string{"test"},
		publish: true,
	}
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.title = title
	return rb
}

// WithAuthor sets the recipe author
func (rb *RecipeBuilder) WithAuthor(authorID uuid.UUID) *RecipeBuilder {
	rb.authorID = authorID
	return rb
}

// WithMealTypes sets the slots the recipe fits
func (rb *RecipeBuilder) WithMealTypes(mealTypes ...recipe.MealType) *RecipeBuilder {
	rb.mealTypes = mealTypes
	return rb
}

// WithScore sets the anti-inflammatory score
func (rb *RecipeBuilder) WithScore(score int) *RecipeBuilder {
	rb.score = score
	return rb
}

// WithCalories sets calories per serving
func (rb *RecipeBuilder) WithCalories(calories float64) *RecipeBuilder {
	rb.nutrition.Calories = calories
	return rb
}

// WithNutrition sets the full per-serving nutrition
func (rb *RecipeBuilder) WithNutrition(n recipe.NutritionInfo) *RecipeBuilder {
	rb.nutrition = n
	return rb
}

// WithTimings sets prep and cook time
func (rb *RecipeBuilder) WithTimings(prepTime, cookTime time.Duration) *RecipeBuilder {
	rb.prepTime = prepTime
	rb.cookTime = cookTime
	return rb
}

// WithTags sets the tags
func (rb *RecipeBuilder) WithTags(tags ...string) *RecipeBuilder {
	rb.tags = tags
	return rb
}

// AsDraft leaves the recipe unpublished
func (rb *RecipeBuilder) AsDraft() *RecipeBuilder {
	rb.publish = false
	return rb
}

// Build creates the recipe and clears its creation events
func (rb *RecipeBuilder) Build() (*recipe.Recipe, error) {
	r, err := recipe.NewRecipe(rb.title, rb.description, rb.authorID)
	if err != nil {
		return nil, err
	}
	if err := r.SetMealTypes(rb.mealTypes); err != nil {
		return nil, err
	}
	if err := r.SetAntiInflammatoryScore(rb.score); err != nil {
		return nil, err
	}
	if err := r.SetTiming(rb.prepTime, rb.cookTime); err != nil {
		return nil, err
	}
	if err := r.SetServings(rb.servings); err != nil {
		return nil, err
	}
	if err := r.SetNutrition(rb.nutrition); err != nil {
		return nil, err
	}
	r.SetTags(rb.tags)

	ingredient := recipe.Ingredient{Name: rb.faker.Vegetable(), Amount: float64(rb.faker.IntRange(1, 500)), Unit: "g"}
	if err := r.AddIngredient(ingredient); err != nil {
		return nil, err
	}
	if err := r.AddInstruction(recipe.Instruction{Description: rb.faker.Sentence(6)}); err != nil {
		return nil, err
	}

	if rb.publish {
		if err := r.Publish(); err != nil {
			return nil, err
		}
	}
	r.Events()
	return r, nil
}

// MustBuild panics on error; for table setup
func (rb *RecipeBuilder) MustBuild() *recipe.Recipe {
	r, err := rb.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// UserBuilder provides a fluent interface for building test users
type UserBuilder struct {
	email       string
	name        string
	password    string
	admin       bool
	profile     *user.Profile
	preferences *user.Preferences
}

// NewUserBuilder creates a builder with seeded defaults
func NewUserBuilder(seed int64) *UserBuilder {
	faker := gofakeit.New(seed)
	return &UserBuilder{
		email:    faker.Email(),
		name:     faker.Name(),
		password: DefaultPassword,
	}
}

// WithEmail sets the email
func (ub *UserBuilder) WithEmail(email string) *UserBuilder {
	ub.email = email
	return ub
}

// WithProfile sets the body profile
func (ub *UserBuilder) WithProfile(p user.Profile) *UserBuilder {
	ub.profile = &p
	return ub
}

// WithPreferences sets meal planning preferences
func (ub *UserBuilder) WithPreferences(p user.Preferences) *UserBuilder {
	ub.preferences = &p
	return ub
}

// AsAdmin grants the admin role
func (ub *UserBuilder) AsAdmin() *UserBuilder {
	ub.admin = true
	return ub
}

// Build creates the user and clears its registration events
func (ub *UserBuilder) Build() (*user.User, error) {
	u, err := user.NewUser(ub.email, ub.name, ub.password)
	if err != nil {
		return nil, err
	}
	if ub.profile != nil {
		if err := u.UpdateProfile(*ub.profile); err != nil {
			return nil, err
		}
	}
	if ub.preferences != nil {
		if err := u.UpdatePreferences(*ub.preferences); err != nil {
			return nil, err
		}
	}
	if ub.admin {
		u.PromoteToAdmin()
	}
	u.Events()
	return u, nil
}

// MustBuild panics on error; for table setup
func (ub *UserBuilder) MustBuild() *user.User {
	u, err := ub.Build()
	if err != nil {
		panic(err)
	}
	return u
}

// RecipePool builds count published recipes cycling through every meal type
func RecipePool(seed int64, count int) []*recipe.Recipe {
	pool := make([]*recipe.Recipe, 0, count)
	for i := 0; i < count; i++ {
		slot := recipe.AllMealTypes[i%len(recipe.AllMealTypes)]
		pool = append(pool, NewRecipeBuilder(seed+int64(i)).
			WithTitle(fmt.Sprintf("Recipe %03d", i)).
			WithMealTypes(slot).
			WithScore(6+i%5).
			MustBuild())
	}
	return pool
}
