package recipe

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecipeTestSuite provides a test suite for Recipe entity
type RecipeTestSuite struct {
	suite.Suite
	authorID uuid.UUID
}

// SetupSuite initializes the test suite
func (suite *RecipeTestSuite) SetupSuite() {
	suite.authorID = uuid.New()
}

func (suite *RecipeTestSuite) publishable() *Recipe {
	r, err := NewRecipe("Turmeric Lentil Soup", "Warming red lentil soup", suite.authorID)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), r.SetMealTypes([]MealType{MealTypeLunch, MealTypeDinner}))
	require.NoError(suite.T(), r.SetAntiInflammatoryScore(9))
	require.NoError(suite.T(), r.AddIngredient(Ingredient{Name: "red lentils", Amount: 200, Unit: "g"}))
	require.NoError(suite.T(), r.AddInstruction(Instruction{Description: "Simmer lentils with turmeric"}))
	return r
}

// TestRecipeCreation tests recipe creation scenarios
func (suite *RecipeTestSuite) TestRecipeCreation() {
	suite.Run("ValidRecipe_ShouldCreateSuccessfully", func() {
		// Arrange
		title := "Salmon with Greens"
		authorID := uuid.New()

		// Act
		recipe, err := NewRecipe(title, "Omega-3 rich dinner", authorID)

		// Assert
		require.NoError(suite.T(), err)
		require.NotNil(suite.T(), recipe)

		assert.Equal(suite.T(), title, recipe.Title())
		assert.NotEqual(suite.T(), uuid.Nil, recipe.ID())
		assert.Equal(suite.T(), RecipeStatusDraft, recipe.Status())
		assert.Equal(suite.T(), 1, recipe.Servings())
		assert.Equal(suite.T(), int64(1), recipe.Version())

		events := recipe.Events()
		require.Len(suite.T(), events, 1)
		createdEvent, ok := events[0].(RecipeCreatedEvent)
		assert.True(suite.T(), ok, "Should emit RecipeCreatedEvent")
		assert.Equal(suite.T(), authorID, createdEvent.AuthorID)
	})

	suite.Run("TitleTooShort_ShouldReturnError", func() {
		recipe, err := NewRecipe("  AB ", "Valid description", uuid.New())

		assert.Nil(suite.T(), recipe)
		assert.Equal(suite.T(), ErrTitleTooShort, err)
	})

	suite.Run("TitleTooLong_ShouldReturnError", func() {
		recipe, err := NewRecipe(strings.Repeat("a", 201), "Valid description", uuid.New())

		assert.Nil(suite.T(), recipe)
		assert.Equal(suite.T(), ErrTitleTooLong, err)
	})

	suite.Run("DescriptionTooLong_ShouldReturnError", func() {
		recipe, err := NewRecipe("Valid Title", strings.Repeat("d", 2001), uuid.New())

		assert.Nil(suite.T(), recipe)
		assert.Equal(suite.T(), ErrDescriptionTooLong, err)
	})
}

// TestRecipeAttributes tests the planning-related attributes
func (suite *RecipeTestSuite) TestRecipeAttributes() {
	suite.Run("SetMealTypes_Duplicates_ShouldDeduplicate", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		err := recipe.SetMealTypes([]MealType{MealTypeBreakfast, MealTypeSnack, MealTypeBreakfast})

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), []MealType{MealTypeBreakfast, MealTypeSnack}, recipe.MealTypes())
		assert.True(suite.T(), recipe.HasMealType(MealTypeSnack))
		assert.False(suite.T(), recipe.HasMealType(MealTypeDinner))
	})

	suite.Run("SetMealTypes_Unknown_ShouldFail", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		assert.Equal(suite.T(), ErrInvalidMealType, recipe.SetMealTypes([]MealType{"brunch"}))
		assert.Equal(suite.T(), ErrNoMealTypes, recipe.SetMealTypes(nil))
	})

	suite.Run("SetScore_OutOfRange_ShouldFail", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		assert.Equal(suite.T(), ErrInvalidScore, recipe.SetAntiInflammatoryScore(0))
		assert.Equal(suite.T(), ErrInvalidScore, recipe.SetAntiInflammatoryScore(11))
		assert.NoError(suite.T(), recipe.SetAntiInflammatoryScore(10))
		assert.Equal(suite.T(), 10, recipe.AntiInflammatoryScore())
	})

	suite.Run("SetTiming_Negative_ShouldFail", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		assert.Equal(suite.T(), ErrNegativeDuration, recipe.SetTiming(-time.Minute, 0))
		require.NoError(suite.T(), recipe.SetTiming(10*time.Minute, 20*time.Minute))
		assert.Equal(suite.T(), 30*time.Minute, recipe.TotalTime())
	})

	suite.Run("SetNutrition_Negative_ShouldFail", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		assert.Equal(suite.T(), ErrNegativeNutrient, recipe.SetNutrition(NutritionInfo{Calories: -1}))
	})

	suite.Run("SetTags_ShouldNormalize", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)

		recipe.SetTags([]string{" Vegan", "", "GLUTEN-FREE "})

		assert.Equal(suite.T(), []string{"vegan", "gluten-free"}, recipe.Tags())
	})

	suite.Run("Update_AfterCreationConsumed_ShouldEmitSingleUpdateEvent", func() {
		recipe, _ := NewRecipe("Overnight Oats", "", suite.authorID)
		recipe.Events()

		require.NoError(suite.T(), recipe.SetServings(2))
		require.NoError(suite.T(), recipe.SetAntiInflammatoryScore(7))

		events := recipe.Events()
		require.Len(suite.T(), events, 1)
		assert.Equal(suite.T(), "recipe.updated", events[0].EventName())
	})
}

// TestRecipeLifecycle tests status transitions
func (suite *RecipeTestSuite) TestRecipeLifecycle() {
	suite.Run("Publish_Complete_ShouldPublish", func() {
		recipe := suite.publishable()
		recipe.Events()

		err := recipe.Publish()

		require.NoError(suite.T(), err)
		assert.True(suite.T(), recipe.IsPublished())
		assert.NotNil(suite.T(), recipe.PublishedAt())
		events := recipe.Events()
		require.Len(suite.T(), events, 1)
		assert.IsType(suite.T(), RecipePublishedEvent{}, events[0])
	})

	suite.Run("Publish_NoMealTypes_ShouldFail", func() {
		recipe, _ := NewRecipe("Plain Rice", "", suite.authorID)
		_ = recipe.AddIngredient(Ingredient{Name: "rice", Amount: 1, Unit: "cup"})
		_ = recipe.AddInstruction(Instruction{Description: "Boil"})

		assert.Equal(suite.T(), ErrNoMealTypes, recipe.Publish())
	})

	suite.Run("Publish_NoIngredients_ShouldFail", func() {
		recipe, _ := NewRecipe("Plain Rice", "", suite.authorID)

		assert.Equal(suite.T(), ErrNoIngredients, recipe.Publish())
	})

	suite.Run("Publish_Twice_ShouldFail", func() {
		recipe := suite.publishable()
		require.NoError(suite.T(), recipe.Publish())

		assert.Equal(suite.T(), ErrInvalidStatusTransition, recipe.Publish())
	})

	suite.Run("Archive_ShouldBlockFurtherEdits", func() {
		recipe := suite.publishable()
		require.NoError(suite.T(), recipe.Publish())

		require.NoError(suite.T(), recipe.Archive())

		assert.Equal(suite.T(), RecipeStatusArchived, recipe.Status())
		assert.Equal(suite.T(), ErrRecipeArchived, recipe.SetServings(4))
	})

	suite.Run("Archive_Draft_ShouldFail", func() {
		recipe, _ := NewRecipe("Plain Rice", "", suite.authorID)

		assert.Equal(suite.T(), ErrInvalidStatusTransition, recipe.Archive())
	})

	suite.Run("AddInstruction_ShouldNumberSteps", func() {
		recipe := suite.publishable()

		require.NoError(suite.T(), recipe.AddInstruction(Instruction{Description: "Serve"}))

		steps := recipe.Instructions()
		assert.Equal(suite.T(), 1, steps[0].StepNumber)
		assert.Equal(suite.T(), 2, steps[1].StepNumber)
	})
}

func TestNutritionInfo_Scale(t *testing.T) {
	n := NutritionInfo{Calories: 400, Protein: 20, Carbohydrates: 50, Fat: 10}

	scaled := n.Scale(1.5)

	assert.InDelta(t, 600.0, scaled.Calories, 1e-9)
	assert.InDelta(t, 30.0, scaled.Protein, 1e-9)
	assert.InDelta(t, 75.0, scaled.Carbohydrates, 1e-9)
	assert.InDelta(t, 15.0, scaled.Fat, 1e-9)
}

func TestParseMealType(t *testing.T) {
	m, err := ParseMealType(" Dinner ")
	require.NoError(t, err)
	assert.Equal(t, MealTypeDinner, m)

	_, err = ParseMealType("elevenses")
	assert.ErrorIs(t, err, ErrInvalidMealType)
}

// TestRecipeTestSuite runs the recipe test suite
func TestRecipeTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}
