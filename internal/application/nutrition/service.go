// Package nutrition provides the application layer for food logging and daily scoring
package nutrition

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultLookupLimit caps food search results when the caller sets none
	DefaultLookupLimit = 10
	// SuggestedMinScore is the anti-inflammatory floor of derived goals
	SuggestedMinScore = 6
)

// NutritionService implements the food logging use cases
type NutritionService struct {
	repo       outbound.NutritionRepository
	recipeRepo outbound.RecipeRepository
	userRepo   outbound.UserRepository
	foods      outbound.FoodLookup
	cache      outbound.CacheRepository
	events     outbound.EventPublisher
	lookupTTL  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewNutritionService creates a new nutrition service
func NewNutritionService(
	repo outbound.NutritionRepository,
	recipeRepo outbound.RecipeRepository,
	userRepo outbound.UserRepository,
	foods outbound.FoodLookup,
	cache outbound.CacheRepository,
	events outbound.EventPublisher,
	lookupTTL time.Duration,
	logger *zap.Logger,
) *NutritionService {
	if lookupTTL <= 0 {
		lookupTTL = 24 * time.Hour
	}
	return &NutritionService{
		repo:       repo,
		recipeRepo: recipeRepo,
		userRepo:   userRepo,
		foods:      foods,
		cache:      cache,
		events:     events,
		lookupTTL:  lookupTTL,
		logger:     logger.Named("nutrition-service"),
		now:        time.Now,
	}
}

var _ inbound.NutritionService = (*NutritionService)(nil)

// LogFood records an entry from a recipe or from free-form values
func (s *NutritionService) LogFood(ctx context.Context, userID uuid.UUID, cmd inbound.LogFoodCommand) (*inbound.FoodLogEntryDTO, error) {
	date, err := s.parseDate(cmd.Date)
	if err != nil {
		return nil, err
	}
	mealType, err := recipe.ParseMealType(cmd.MealType)
	if err != nil {
		return nil, domainError(err)
	}

	var entry *nutrition.FoodLogEntry
	if cmd.RecipeID != nil {
		r, err := s.recipeRepo.FindByID(ctx, *cmd.RecipeID)
		if err != nil {
			return nil, errors.NewDatabaseError("find recipe", err)
		}
		if r == nil || !r.IsPublished() {
			return nil, errors.NewRecipeNotFoundError(cmd.RecipeID.String())
		}
		entry, err = nutrition.NewEntryFromRecipe(userID, date, mealType, r, cmd.Servings)
		if err != nil {
			return nil, domainError(err)
		}
	} else {
		if cmd.Macros == nil {
			return nil, errors.NewValidationError("macros are required without a recipe")
		}
		entry, err = nutrition.NewFoodLogEntry(userID, date, mealType, cmd.Name, cmd.Servings, macrosFromDTO(*cmd.Macros), cmd.Score)
		if err != nil {
			return nil, domainError(err)
		}
	}

	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, errors.NewDatabaseError("log food", err)
	}
	s.events.Publish(ctx, entry.Event())

	s.logger.Info("Food logged",
		zap.String("user_id", userID.String()),
		zap.String("entry_id", entry.ID().String()),
		zap.String("meal_type", string(mealType)),
		zap.Bool("from_recipe", entry.RecipeID() != nil),
	)
	return EntryToDTO(entry), nil
}

// DeleteEntry removes one of the caller's entries
func (s *NutritionService) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	entry, err := s.repo.FindEntry(ctx, entryID)
	if err != nil {
		return errors.NewDatabaseError("find entry", err)
	}
	// Another user's entry is reported as missing
	if entry == nil || entry.UserID() != userID {
		return errors.NewNotFoundError("food log entry")
	}
	if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
		return errors.NewDatabaseError("delete entry", err)
	}
	return nil
}

// DailySummary scores one day against the user's goals
func (s *NutritionService) DailySummary(ctx context.Context, userID uuid.UUID, date time.Time) (*inbound.DailySummaryDTO, error) {
	day := shared.DateOf(date)
	entries, err := s.repo.ListEntries(ctx, userID, day, day)
	if err != nil {
		return nil, errors.NewDatabaseError("list entries", err)
	}
	goals, err := s.effectiveGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	dto := summaryToDTO(nutrition.Summarize(day, entries, goals))
	dto.Entries = make([]inbound.FoodLogEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto.Entries = append(dto.Entries, *EntryToDTO(e))
	}
	return &dto, nil
}

// WeeklyTrends summarizes the seven days ending on end
func (s *NutritionService) WeeklyTrends(ctx context.Context, userID uuid.UUID, end time.Time) (*inbound.WeeklyTrendDTO, error) {
	end = shared.DateOf(end)
	entries, err := s.repo.ListEntries(ctx, userID, end.AddDate(0, 0, -6), end)
	if err != nil {
		return nil, errors.NewDatabaseError("list entries", err)
	}
	goals, err := s.effectiveGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	trend := nutrition.BuildWeeklyTrend(end, entries, goals)
	dto := &inbound.WeeklyTrendDTO{
		Start:           trend.Start.Format(inbound.DateLayout),
		End:             trend.End.Format(inbound.DateLayout),
		Days:            make([]inbound.DailySummaryDTO, 0, len(trend.Days)),
		AverageCalories: round1(trend.AverageCalories),
		AverageScore:    round1(trend.AverageScore),
		AverageDayScore: round1(trend.AverageDayScore),
		DaysLogged:      trend.DaysLogged,
	}
	for _, d := range trend.Days {
		dto.Days = append(dto.Days, summaryToDTO(d))
	}
	return dto, nil
}

// GetGoals returns stored goals, or goals suggested from the profile
func (s *NutritionService) GetGoals(ctx context.Context, userID uuid.UUID) (*inbound.GoalsDTO, error) {
	goals, err := s.repo.GetGoals(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("get goals", err)
	}
	if goals != nil {
		return goalsToDTO(*goals, false), nil
	}

	suggested, err := s.suggestGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return goalsToDTO(suggested, true), nil
}

// SetGoals replaces the user's daily goals
func (s *NutritionService) SetGoals(ctx context.Context, userID uuid.UUID, cmd inbound.SetGoalsCommand) (*inbound.GoalsDTO, error) {
	goals := nutrition.Goals{
		UserID:   userID,
		Calories: cmd.Calories,
		Protein:  cmd.Protein,
		Carbs:    cmd.Carbs,
		Fat:      cmd.Fat,
		MinScore: cmd.MinScore,
	}
	if err := goals.Validate(); err != nil {
		return nil, domainError(err)
	}
	if err := s.repo.SaveGoals(ctx, goals); err != nil {
		return nil, errors.NewDatabaseError("save goals", err)
	}

	s.logger.Info("Nutrition goals updated", zap.String("user_id", userID.String()))
	return goalsToDTO(goals, false), nil
}

// LookupFood searches the external food database; results are cached per query
func (s *NutritionService) LookupFood(ctx context.Context, query inbound.FoodLookupQuery) ([]outbound.FoodItem, error) {
	q := strings.ToLower(strings.TrimSpace(query.Query))
	if q == "" {
		return nil, errors.NewValidationError("query is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultLookupLimit
	}

	key := fmt.Sprintf("food:%d:%s", limit, q)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var items []outbound.FoodItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
	} else if !stderrors.Is(err, outbound.ErrCacheMiss) {
		s.logger.Warn("Food cache read failed", zap.String("query", q), zap.Error(err))
	}

	items, err := s.foods.Search(ctx, q, limit)
	if err != nil {
		return nil, errors.NewExternalServiceError("food database", err)
	}
	if items == nil {
		items = []outbound.FoodItem{}
	}

	if data, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, key, data, s.lookupTTL); err != nil {
			s.logger.Warn("Food cache write failed", zap.String("query", q), zap.Error(err))
		}
	}
	return items, nil
}

// Helper methods

func (s *NutritionService) parseDate(value string) (time.Time, error) {
	if value == "" {
		return shared.DateOf(s.now()), nil
	}
	t, err := time.Parse(inbound.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.NewValidationError("date must be YYYY-MM-DD")
	}
	return t, nil
}

// effectiveGoals returns stored goals, falling back to profile-derived ones; nil when neither exists
func (s *NutritionService) effectiveGoals(ctx context.Context, userID uuid.UUID) (*nutrition.Goals, error) {
	goals, err := s.repo.GetGoals(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("get goals", err)
	}
	if goals != nil {
		return goals, nil
	}
	suggested, err := s.suggestGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !suggested.HasMacroTargets() {
		return nil, nil
	}
	return &suggested, nil
}

// suggestGoals splits caloric needs 20/50/30 across protein, carbs and fat
func (s *NutritionService) suggestGoals(ctx context.Context, userID uuid.UUID) (nutrition.Goals, error) {
	goals := nutrition.Goals{UserID: userID, MinScore: SuggestedMinScore}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return goals, errors.NewDatabaseError("find user", err)
	}
	if u == nil {
		return goals, errors.NewUserNotFoundError(userID.String())
	}

	calories := float64(u.CaloricNeeds())
	if calories <= 0 {
		return goals, nil
	}
	goals.Calories = calories
	goals.Protein = math.Round(calories * 0.20 / 4)
	goals.Carbs = math.Round(calories * 0.50 / 4)
	goals.Fat = math.Round(calories * 0.30 / 9)
	return goals, nil
}

// domainError translates nutrition domain errors into application errors
func domainError(err error) error {
	if stderrors.Is(err, nutrition.ErrEntryNotFound) {
		return errors.NewNotFoundError("food log entry")
	}
	return errors.NewValidationError(err.Error()).WithCause(err)
}

func macrosFromDTO(m inbound.MacrosDTO) nutrition.Macros {
	return nutrition.Macros{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat, Fiber: m.Fiber}
}

func macrosToDTO(m nutrition.Macros) inbound.MacrosDTO {
	return inbound.MacrosDTO{
		Calories: round1(m.Calories),
		Protein:  round1(m.Protein),
		Carbs:    round1(m.Carbs),
		Fat:      round1(m.Fat),
		Fiber:    round1(m.Fiber),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// EntryToDTO converts a food log entry to its DTO
func EntryToDTO(e *nutrition.FoodLogEntry) *inbound.FoodLogEntryDTO {
	return &inbound.FoodLogEntryDTO{
		ID:         e.ID(),
		Date:       e.Date().Format(inbound.DateLayout),
		MealType:   string(e.MealType()),
		RecipeID:   e.RecipeID(),
		Name:       e.Name(),
		Servings:   e.Servings(),
		PerServing: macrosToDTO(e.PerServing()),
		Total:      macrosToDTO(e.Total()),
		Score:      e.Score(),
		CreatedAt:  e.CreatedAt(),
	}
}

func summaryToDTO(s nutrition.DailySummary) inbound.DailySummaryDTO {
	return inbound.DailySummaryDTO{
		Date:         s.Date.Format(inbound.DateLayout),
		Totals:       macrosToDTO(s.Totals),
		EntryCount:   s.EntryCount,
		AverageScore: round1(s.AverageScore),
		Adherence: inbound.AdherenceDTO{
			Calories: roundPtr(s.Adherence.Calories),
			Protein:  roundPtr(s.Adherence.Protein),
			Carbs:    roundPtr(s.Adherence.Carbs),
			Fat:      roundPtr(s.Adherence.Fat),
		},
		Score:        s.Score,
		MeetsMinimum: s.MeetsMinimum,
	}
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round1(*v)
	return &r
}

func goalsToDTO(g nutrition.Goals, suggested bool) *inbound.GoalsDTO {
	return &inbound.GoalsDTO{
		Calories:  g.Calories,
		Protein:   g.Protein,
		Carbs:     g.Carbs,
		Fat:       g.Fat,
		MinScore:  g.MinScore,
		Suggested: suggested,
	}
}
