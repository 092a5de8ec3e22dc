// Package recipe provides the application layer for the recipe catalog
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// CacheTTL bounds how long a recipe DTO is served from cache
const CacheTTL = time.Hour

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipeRepo outbound.RecipeRepository
	cache      outbound.CacheRepository
	events     outbound.EventPublisher
	logger     *zap.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipeRepo outbound.RecipeRepository,
	cache outbound.CacheRepository,
	events outbound.EventPublisher,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		cache:      cache,
		events:     events,
		logger:     logger.Named("recipe-service"),
	}
}

var _ inbound.RecipeService = (*RecipeService)(nil)

// CreateRecipe creates a new recipe
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Creating new recipe",
		zap.String("title", cmd.Title),
		zap.String("author_id", cmd.AuthorID.String()),
	)

	// Create domain entity
	entity, err := recipe.NewRecipe(cmd.Title, cmd.Description, cmd.AuthorID)
	if err != nil {
		return nil, domainError(err)
	}

	if err := entity.UpdateDetails(cmd.Title, cmd.Description, cmd.ImageURL); err != nil {
		return nil, domainError(err)
	}
	mealTypes, err := parseMealTypes(cmd.MealTypes)
	if err != nil {
		return nil, domainError(err)
	}
	if err := entity.SetMealTypes(mealTypes); err != nil {
		return nil, domainError(err)
	}
	if err := entity.SetAntiInflammatoryScore(cmd.AntiInflammatoryScore); err != nil {
		return nil, domainError(err)
	}
	if err := entity.SetTiming(minutes(cmd.PrepMinutes), minutes(cmd.CookMinutes)); err != nil {
		return nil, domainError(err)
	}
	if err := entity.SetServings(cmd.Servings); err != nil {
		return nil, domainError(err)
	}
	if err := entity.SetNutrition(nutritionFromDTO(cmd.Nutrition)); err != nil {
		return nil, domainError(err)
	}
	if err := entity.ReplaceContent(ingredientsFromInput(cmd.Ingredients), instructionsFromInput(cmd.Instructions)); err != nil {
		return nil, domainError(err)
	}
	entity.SetTags(cmd.Tags)

	if cmd.Publish {
		if err := entity.Publish(); err != nil {
			return nil, domainError(err)
		}
	}

	// Save to repository
	if err := s.recipeRepo.Create(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError("create recipe", err)
	}

	s.events.Publish(ctx, entity.Events()...)

	dto := EntityToDTO(entity)

	s.logger.Info("Recipe created successfully",
		zap.String("recipe_id", dto.ID.String()),
		zap.String("status", dto.Status),
	)

	return dto, nil
}

// UpdateRecipe applies the non-nil fields of cmd
func (s *RecipeService) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Updating recipe", zap.String("recipe_id", cmd.RecipeID.String()))

	entity, err := s.load(ctx, cmd.RecipeID)
	if err != nil {
		return nil, err
	}

	if cmd.Title != nil || cmd.Description != nil || cmd.ImageURL != nil {
		title, description, imageURL := entity.Title(), entity.Description(), entity.ImageURL()
		if cmd.Title != nil {
			title = *cmd.Title
		}
		if cmd.Description != nil {
			description = *cmd.Description
		}
		if cmd.ImageURL != nil {
			imageURL = *cmd.ImageURL
		}
		if err := entity.UpdateDetails(title, description, imageURL); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.MealTypes != nil {
		mealTypes, err := parseMealTypes(*cmd.MealTypes)
		if err != nil {
			return nil, domainError(err)
		}
		if err := entity.SetMealTypes(mealTypes); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.AntiInflammatoryScore != nil {
		if err := entity.SetAntiInflammatoryScore(*cmd.AntiInflammatoryScore); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.PrepMinutes != nil || cmd.CookMinutes != nil {
		prep, cook := entity.PrepTime(), entity.CookTime()
		if cmd.PrepMinutes != nil {
			prep = minutes(*cmd.PrepMinutes)
		}
		if cmd.CookMinutes != nil {
			cook = minutes(*cmd.CookMinutes)
		}
		if err := entity.SetTiming(prep, cook); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.Servings != nil {
		if err := entity.SetServings(*cmd.Servings); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.Nutrition != nil {
		if err := entity.SetNutrition(nutritionFromDTO(*cmd.Nutrition)); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.Ingredients != nil || cmd.Instructions != nil {
		ingredients, instructions := entity.Ingredients(), entity.Instructions()
		if cmd.Ingredients != nil {
			ingredients = ingredientsFromInput(*cmd.Ingredients)
		}
		if cmd.Instructions != nil {
			instructions = instructionsFromInput(*cmd.Instructions)
		}
		if err := entity.ReplaceContent(ingredients, instructions); err != nil {
			return nil, domainError(err)
		}
	}

	if cmd.Tags != nil {
		entity.SetTags(*cmd.Tags)
	}

	return s.save(ctx, entity, "update recipe")
}

// PublishRecipe publishes a draft recipe
func (s *RecipeService) PublishRecipe(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, error) {
	s.logger.Info("Publishing recipe", zap.String("recipe_id", recipeID.String()))

	entity, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := entity.Publish(); err != nil {
		return nil, domainError(err)
	}
	return s.save(ctx, entity, "publish recipe")
}

// ArchiveRecipe archives a published recipe
func (s *RecipeService) ArchiveRecipe(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, error) {
	s.logger.Info("Archiving recipe", zap.String("recipe_id", recipeID.String()))

	entity, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := entity.Archive(); err != nil {
		return nil, domainError(err)
	}
	return s.save(ctx, entity, "archive recipe")
}

// DeleteRecipe removes a recipe
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error {
	s.logger.Info("Deleting recipe", zap.String("recipe_id", recipeID.String()))

	if _, err := s.load(ctx, recipeID); err != nil {
		return err
	}
	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		return errors.NewDatabaseError("delete recipe", err)
	}
	s.invalidateRecipeCache(ctx, recipeID)
	return nil
}

// ToggleFavorite flips the favorite state of a published recipe for a user
func (s *RecipeService) ToggleFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*inbound.FavoriteResult, error) {
	entity, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !entity.IsPublished() {
		return nil, errors.NewRecipeNotFoundError(recipeID.String())
	}

	favorite, err := s.recipeRepo.IsFavorite(ctx, userID, recipeID)
	if err != nil {
		return nil, errors.NewDatabaseError("check favorite", err)
	}

	if favorite {
		if err := s.recipeRepo.RemoveFavorite(ctx, userID, recipeID); err != nil {
			return nil, errors.NewDatabaseError("remove favorite", err)
		}
	} else {
		if err := s.recipeRepo.AddFavorite(ctx, userID, recipeID); err != nil {
			return nil, errors.NewDatabaseError("add favorite", err)
		}
		entity.MarkFavorited(userID)
		s.events.Publish(ctx, entity.Events()...)
	}

	s.logger.Debug("Favorite toggled",
		zap.String("recipe_id", recipeID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("favorited", !favorite),
	)

	return &inbound.FavoriteResult{RecipeID: recipeID, Favorited: !favorite}, nil
}

// ListFavorites lists a user's favorite recipes
func (s *RecipeService) ListFavorites(ctx context.Context, userID uuid.UUID, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	params = params.Normalize()
	recipes, total, err := s.recipeRepo.ListFavorites(ctx, userID, params.Offset(), params.PageSize)
	if err != nil {
		return nil, errors.NewDatabaseError("list favorites", err)
	}
	return toList(recipes, total, params), nil
}

// GetRecipe returns a recipe; unpublished recipes are hidden unless includeUnpublished
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID uuid.UUID, includeUnpublished bool) (*inbound.RecipeDTO, error) {
	if dto, ok := s.getCachedRecipe(ctx, recipeID); ok {
		if dto.Status != string(recipe.RecipeStatusPublished) && !includeUnpublished {
			return nil, errors.NewRecipeNotFoundError(recipeID.String())
		}
		return dto, nil
	}

	entity, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	dto := EntityToDTO(entity)
	s.cacheRecipe(ctx, dto)

	if !entity.IsPublished() && !includeUnpublished {
		return nil, errors.NewRecipeNotFoundError(recipeID.String())
	}
	return dto, nil
}

// ListRecipes lists the catalog
func (s *RecipeService) ListRecipes(ctx context.Context, query inbound.RecipeQuery) (*inbound.RecipeList, error) {
	params := query.PaginationParams.Normalize()
	filter := outbound.RecipeFilter{
		MealType:           recipe.MealType(query.MealType),
		MinScore:           query.MinScore,
		MaxPrepMinutes:     query.MaxPrepMinutes,
		Search:             strings.TrimSpace(query.Search),
		Tag:                strings.ToLower(strings.TrimSpace(query.Tag)),
		IncludeUnpublished: query.IncludeUnpublished,
		Offset:             params.Offset(),
		Limit:              params.PageSize,
		OrderBy:            "anti_inflammatory_score",
		OrderDir:           "desc",
	}

	recipes, total, err := s.recipeRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}
	return toList(recipes, total, params), nil
}

// Helper methods

func (s *RecipeService) load(ctx context.Context, recipeID uuid.UUID) (*recipe.Recipe, error) {
	entity, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		return nil, errors.NewDatabaseError("find recipe", err)
	}
	if entity == nil {
		return nil, errors.NewRecipeNotFoundError(recipeID.String())
	}
	return entity, nil
}

func (s *RecipeService) save(ctx context.Context, entity *recipe.Recipe, op string) (*inbound.RecipeDTO, error) {
	if err := s.recipeRepo.Update(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError(op, err)
	}
	s.events.Publish(ctx, entity.Events()...)
	s.invalidateRecipeCache(ctx, entity.ID())
	return EntityToDTO(entity), nil
}

func toList(recipes []*recipe.Recipe, total int64, params inbound.PaginationParams) *inbound.RecipeList {
	list := &inbound.RecipeList{
		Recipes:    make([]inbound.RecipeDTO, 0, len(recipes)),
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
	}
	for _, r := range recipes {
		list.Recipes = append(list.Recipes, *EntityToDTO(r))
	}
	return list
}

// domainError translates recipe domain errors into application errors
func domainError(err error) error {
	switch {
	case stderrors.Is(err, recipe.ErrRecipeNotFound):
		return errors.NewNotFoundError("recipe")
	case stderrors.Is(err, recipe.ErrInvalidStatusTransition), stderrors.Is(err, recipe.ErrRecipeArchived):
		return errors.NewConflictError(err.Error())
	default:
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
}

func parseMealTypes(values []string) ([]recipe.MealType, error) {
	out := make([]recipe.MealType, 0, len(values))
	for _, v := range values {
		m, err := recipe.ParseMealType(v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func nutritionFromDTO(n inbound.NutritionDTO) recipe.NutritionInfo {
	return recipe.NutritionInfo{
		Calories:      n.Calories,
		Protein:       n.Protein,
		Carbohydrates: n.Carbohydrates,
		Fat:           n.Fat,
		Fiber:         n.Fiber,
		Sugar:         n.Sugar,
		Sodium:        n.Sodium,
	}
}

func ingredientsFromInput(in []inbound.IngredientInput) []recipe.Ingredient {
	out := make([]recipe.Ingredient, 0, len(in))
	for _, i := range in {
		out = append(out, recipe.Ingredient{Name: i.Name, Amount: i.Amount, Unit: i.Unit, Optional: i.Optional})
	}
	return out
}

func instructionsFromInput(in []string) []recipe.Instruction {
	out := make([]recipe.Instruction, 0, len(in))
	for i, d := range in {
		out = append(out, recipe.Instruction{StepNumber: i + 1, Description: d})
	}
	return out
}

// EntityToDTO converts a recipe to its DTO
func EntityToDTO(entity *recipe.Recipe) *inbound.RecipeDTO {
	n := entity.Nutrition()
	dto := &inbound.RecipeDTO{
		ID:                    entity.ID(),
		Title:                 entity.Title(),
		Description:           entity.Description(),
		AuthorID:              entity.AuthorID(),
		ImageURL:              entity.ImageURL(),
		MealTypes:             make([]string, 0, len(entity.MealTypes())),
		AntiInflammatoryScore: entity.AntiInflammatoryScore(),
		PrepMinutes:           int(entity.PrepTime().Minutes()),
		CookMinutes:           int(entity.CookTime().Minutes()),
		TotalMinutes:          int(entity.TotalTime().Minutes()),
		Servings:              entity.Servings(),
		Nutrition: inbound.NutritionDTO{
			Calories:      n.Calories,
			Protein:       n.Protein,
			Carbohydrates: n.Carbohydrates,
			Fat:           n.Fat,
			Fiber:         n.Fiber,
			Sugar:         n.Sugar,
			Sodium:        n.Sodium,
		},
		Ingredients:  make([]inbound.IngredientDTO, 0, len(entity.Ingredients())),
		Instructions: make([]inbound.InstructionDTO, 0, len(entity.Instructions())),
		Tags:         append([]string{}, entity.Tags()...),
		Status:       string(entity.Status()),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
		PublishedAt:  entity.PublishedAt(),
	}
	for _, m := range entity.MealTypes() {
		dto.MealTypes = append(dto.MealTypes, string(m))
	}
	for _, i := range entity.Ingredients() {
		dto.Ingredients = append(dto.Ingredients, inbound.IngredientDTO{
			Name: i.Name, Amount: i.Amount, Unit: i.Unit, Optional: i.Optional,
		})
	}
	for _, i := range entity.Instructions() {
		dto.Instructions = append(dto.Instructions, inbound.InstructionDTO{StepNumber: i.StepNumber, Description: i.Description})
	}
	return dto
}

// Cache operations

func recipeCacheKey(recipeID uuid.UUID) string {
	return fmt.Sprintf("recipe:%s", recipeID.String())
}

// getCachedRecipe retrieves a recipe from cache
func (s *RecipeService) getCachedRecipe(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, bool) {
	data, err := s.cache.Get(ctx, recipeCacheKey(recipeID))
	if err != nil {
		if !stderrors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Recipe cache read failed", zap.String("recipe_id", recipeID.String()), zap.Error(err))
		}
		return nil, false
	}
	var dto inbound.RecipeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		s.logger.Warn("Discarding corrupt cached recipe", zap.String("recipe_id", recipeID.String()), zap.Error(err))
		return nil, false
	}
	return &dto, true
}

// cacheRecipe caches a recipe
func (s *RecipeService) cacheRecipe(ctx context.Context, dto *inbound.RecipeDTO) {
	data, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, recipeCacheKey(dto.ID), data, CacheTTL); err != nil {
		s.logger.Warn("Recipe cache write failed", zap.String("recipe_id", dto.ID.String()), zap.Error(err))
	}
}

// invalidateRecipeCache invalidates recipe cache
func (s *RecipeService) invalidateRecipeCache(ctx context.Context, recipeID uuid.UUID) {
	if err := s.cache.Delete(ctx, recipeCacheKey(recipeID)); err != nil {
		s.logger.Warn("Recipe cache invalidation failed", zap.String("recipe_id", recipeID.String()), zap.Error(err))
	}
}
