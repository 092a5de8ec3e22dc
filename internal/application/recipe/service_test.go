package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	domain "github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/internal/testutil"
	apperrors "github.com/nourishlab/nourish/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	repo      *testutil.MockRecipeRepository
	cache     *testutil.MapCache
	publisher *testutil.RecordingPublisher
	svc       *RecipeService
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		repo:      new(testutil.MockRecipeRepository),
		cache:     testutil.NewMapCache(),
		publisher: new(testutil.RecordingPublisher),
	}
	f.svc = NewRecipeService(f.repo, f.cache, f.publisher, zaptest.NewLogger(t))
	t.Cleanup(func() { f.repo.AssertExpectations(t) })
	return f
}

func validCreate() inbound.CreateRecipeCommand {
	return inbound.CreateRecipeCommand{
		AuthorID:              uuid.New(),
		Title:                 "Turmeric Lentil Soup",
		Description:           "Warming and bright",
		MealTypes:             []string{"lunch", "dinner"},
		AntiInflammatoryScore: 9,
		PrepMinutes:           10,
		CookMinutes:           30,
		Servings:              4,
		Nutrition:             inbound.NutritionDTO{Calories: 380, Protein: 18, Carbohydrates: 52, Fat: 9, Fiber: 14},
		Ingredients:           []inbound.IngredientInput{{Name: "red lentils", Amount: 200, Unit: "g"}},
		Instructions:          []string{"Simmer everything", "Blend half"},
		Tags:                  []string{"Vegan", "soup"},
		Publish:               true,
	}
}

func TestCreateRecipe_PublishesAndEmitsEvents(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*recipe.Recipe")).Return(nil)

	dto, err := f.svc.CreateRecipe(context.Background(), validCreate())

	require.NoError(t, err)
	assert.Equal(t, "published", dto.Status)
	assert.Equal(t, []string{"lunch", "dinner"}, dto.MealTypes)
	assert.Equal(t, 40, dto.TotalMinutes)
	assert.Equal(t, []string{"vegan", "soup"}, dto.Tags)
	require.Len(t, dto.Instructions, 2)
	assert.Equal(t, 2, dto.Instructions[1].StepNumber)
	assert.Equal(t, []string{"recipe.created", "recipe.published"}, f.publisher.Names())
}

func TestCreateRecipe_DomainValidation(t *testing.T) {
	f := newFixture(t)
	cmd := validCreate()
	cmd.Ingredients = nil

	_, err := f.svc.CreateRecipe(context.Background(), cmd)

	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRecipe_DatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := f.svc.CreateRecipe(context.Background(), validCreate())

	assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))
	assert.Empty(t, f.publisher.Names())
}

func TestGetRecipe_CachesAndHidesDrafts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := testutil.NewRecipeBuilder(1).AsDraft().MustBuild()
	f.repo.On("FindByID", ctx, draft.ID()).Return(draft, nil).Once()

	_, err := f.svc.GetRecipe(ctx, draft.ID(), false)
	assert.True(t, apperrors.Is(err, apperrors.CodeRecipeNotFound))

	// second read is served from cache
	dto, err := f.svc.GetRecipe(ctx, draft.ID(), true)
	require.NoError(t, err)
	assert.Equal(t, draft.Title(), dto.Title)

	raw, err := f.cache.Get(ctx, "recipe:"+draft.ID().String())
	require.NoError(t, err)
	var cached inbound.RecipeDTO
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "draft", cached.Status)
}

func TestGetRecipe_NotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("FindByID", mock.Anything, id).Return(nil, nil)

	_, err := f.svc.GetRecipe(context.Background(), id, true)

	assert.True(t, apperrors.Is(err, apperrors.CodeRecipeNotFound))
}

func TestUpdateRecipe_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := testutil.NewRecipeBuilder(2).MustBuild()
	require.NoError(t, f.cache.Set(ctx, "recipe:"+r.ID().String(), []byte(`{}`), 0))
	f.repo.On("FindByID", ctx, r.ID()).Return(r, nil)
	f.repo.On("Update", ctx, r).Return(nil)

	score := 10
	title := "Ginger Salmon Bowl"
	dto, err := f.svc.UpdateRecipe(ctx, inbound.UpdateRecipeCommand{RecipeID: r.ID(), Title: &title, AntiInflammatoryScore: &score})

	require.NoError(t, err)
	assert.Equal(t, title, dto.Title)
	assert.Equal(t, 10, dto.AntiInflammatoryScore)
	ok, _ := f.cache.Exists(ctx, "recipe:"+r.ID().String())
	assert.False(t, ok)
	assert.Equal(t, []string{"recipe.updated"}, f.publisher.Names())
}

func TestPublishRecipe_RejectsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	r := testutil.NewRecipeBuilder(3).MustBuild()
	f.repo.On("FindByID", mock.Anything, r.ID()).Return(r, nil)

	_, err := f.svc.PublishRecipe(context.Background(), r.ID())

	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestArchiveRecipe(t *testing.T) {
	f := newFixture(t)
	r := testutil.NewRecipeBuilder(4).MustBuild()
	f.repo.On("FindByID", mock.Anything, r.ID()).Return(r, nil)
	f.repo.On("Update", mock.Anything, r).Return(nil)

	dto, err := f.svc.ArchiveRecipe(context.Background(), r.ID())

	require.NoError(t, err)
	assert.Equal(t, string(domain.RecipeStatusArchived), dto.Status)
}

func TestToggleFavorite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := uuid.New()
	r := testutil.NewRecipeBuilder(5).MustBuild()
	f.repo.On("FindByID", ctx, r.ID()).Return(r, nil)
	f.repo.On("IsFavorite", ctx, userID, r.ID()).Return(false, nil).Once()
	f.repo.On("AddFavorite", ctx, userID, r.ID()).Return(nil).Once()
	f.repo.On("IsFavorite", ctx, userID, r.ID()).Return(true, nil).Once()
	f.repo.On("RemoveFavorite", ctx, userID, r.ID()).Return(nil).Once()

	res, err := f.svc.ToggleFavorite(ctx, userID, r.ID())
	require.NoError(t, err)
	assert.True(t, res.Favorited)

	res, err = f.svc.ToggleFavorite(ctx, userID, r.ID())
	require.NoError(t, err)
	assert.False(t, res.Favorited)

	assert.Equal(t, []string{"recipe.favorited"}, f.publisher.Names())
}

func TestListRecipes_BuildsFilter(t *testing.T) {
	f := newFixture(t)
	pool := testutil.RecipePool(10, 3)
	f.repo.On("List", mock.Anything, mock.MatchedBy(func(filter outbound.RecipeFilter) bool {
		return filter.MealType == domain.MealTypeLunch &&
			filter.MinScore == 7 &&
			filter.Tag == "vegan" &&
			filter.Offset == 20 &&
			filter.Limit == 10 &&
			!filter.IncludeUnpublished
	})).Return(pool, int64(23), nil)

	list, err := f.svc.ListRecipes(context.Background(), inbound.RecipeQuery{
		MealType:         "lunch",
		MinScore:         7,
		Tag:              " Vegan ",
		PaginationParams: inbound.PaginationParams{Page: 3, PageSize: 10},
	})

	require.NoError(t, err)
	assert.Len(t, list.Recipes, 3)
	assert.Equal(t, int64(23), list.Total)
	assert.Equal(t, 3, list.TotalPages)
}
