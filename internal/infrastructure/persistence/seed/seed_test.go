package seed

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/sqlite"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var adminUUID = uuid.MustParse("6f1c2b8e-3d4a-4e5f-9a0b-1c2d3e4f5a6b")

var adminOpts = Options{
	AdminEmail:    "kitchen@nourish.local",
	AdminName:     "Nourish Kitchen",
	AdminPassword: "change-me-please",
}

func TestDefaultCatalog_BuildsPublishedRecipes(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, catalog.Recipes)

	covered := map[recipe.MealType]bool{}
	for _, spec := range catalog.Recipes {
		r, err := spec.Build(adminUUID)
		require.NoError(t, err, spec.Title)
		assert.True(t, r.IsPublished(), spec.Title)

		if r.AntiInflammatoryScore() >= mealplan.MinSlotScore {
			for _, mt := range r.MealTypes() {
				covered[mt] = true
			}
		}
	}

	// every slot must be plannable from the seeded catalog alone
	for _, mt := range []recipe.MealType{recipe.MealTypeBreakfast, recipe.MealTypeLunch, recipe.MealTypeDinner, recipe.MealTypeSnack} {
		assert.True(t, covered[mt], string(mt))
	}
}

func TestParseCatalog_RejectsMalformedYAML(t *testing.T) {
	_, err := ParseCatalog([]byte("recipes: [title: :"))
	assert.Error(t, err)
}

func TestRecipeSpec_BuildValidates(t *testing.T) {
	spec := RecipeSpec{
		Title:       "Broken",
		Description: "Score out of range",
		MealTypes:   []string{"dinner"},
		Score:       11,
		Servings:    1,
		Ingredients: []IngredientSpec{{Name: "Water", Amount: 1, Unit: "l"}},
		Steps:       []string{"Boil"},
	}
	_, err := spec.Build(adminUUID)
	assert.ErrorIs(t, err, recipe.ErrInvalidScore)

	spec.Score = 5
	spec.MealTypes = []string{"brunch"}
	_, err = spec.Build(adminUUID)
	assert.Error(t, err)
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.SetupDatabase("", nil)
	require.NoError(t, err)

	users := gormrepo.NewUserRepository(db)
	recipes := gormrepo.NewRecipeRepository(db)
	seeder, err := NewSeeder(users, recipes, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	first, err := seeder.Run(ctx, adminOpts)
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.Equal(t, len(seeder.catalog.Recipes), first.RecipesCreated)

	admin, err := users.FindByEmail(ctx, adminOpts.AdminEmail)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())

	second, err := seeder.Run(ctx, adminOpts)
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Zero(t, second.RecipesCreated)

	_, total, err := recipes.List(ctx, outbound.RecipeFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(first.RecipesCreated), total)

	pool, err := recipes.FindForPlanning(ctx, mealplan.MinSlotScore, 0)
	require.NoError(t, err)
	assert.Less(t, len(pool), first.RecipesCreated, "low scoring recipes stay out of the planning pool")
}

func TestSeeder_RejectsInvalidAdmin(t *testing.T) {
	db, err := sqlite.SetupDatabase("", nil)
	require.NoError(t, err)

	seeder, err := NewSeeder(gormrepo.NewUserRepository(db), gormrepo.NewRecipeRepository(db), &Catalog{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = seeder.Run(context.Background(), Options{AdminEmail: "kitchen@nourish.local", AdminName: "K", AdminPassword: "short"})
	assert.Error(t, err)
}
