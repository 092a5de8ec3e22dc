// Package mealplan provides the application layer for weekly meal planning
package mealplan

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/domain/user"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// MealPlanService implements the planning use cases
type MealPlanService struct {
	planRepo   outbound.MealPlanRepository
	recipeRepo outbound.RecipeRepository
	userRepo   outbound.UserRepository
	advisor    outbound.PlanAdvisor
	generator  *mealplan.Generator
	events     outbound.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewMealPlanService creates a new meal plan service; advisor may be nil
func NewMealPlanService(
	planRepo outbound.MealPlanRepository,
	recipeRepo outbound.RecipeRepository,
	userRepo outbound.UserRepository,
	advisor outbound.PlanAdvisor,
	generator *mealplan.Generator,
	events outbound.EventPublisher,
	logger *zap.Logger,
) *MealPlanService {
	if generator == nil {
		generator = mealplan.NewGenerator(nil)
	}
	return &MealPlanService{
		planRepo:   planRepo,
		recipeRepo: recipeRepo,
		userRepo:   userRepo,
		advisor:    advisor,
		generator:  generator,
		events:     events,
		logger:     logger.Named("mealplan-service"),
		now:        time.Now,
	}
}

var _ inbound.MealPlanService = (*MealPlanService)(nil)

// Generate builds and stores a plan for the requested week, replacing the
// user's previous active plan for that week
func (s *MealPlanService) Generate(ctx context.Context, userID uuid.UUID, cmd inbound.GenerateMealPlanCommand) (*inbound.MealPlanDTO, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekOf := s.now()
	if cmd.WeekOf != "" {
		weekOf, err = time.Parse(inbound.DateLayout, cmd.WeekOf)
		if err != nil {
			return nil, errors.NewValidationError("week_of must be YYYY-MM-DD")
		}
	}

	prefs, err := mergePreferences(u.Preferences(), cmd)
	if err != nil {
		return nil, domainError(err)
	}

	s.logger.Info("Generating meal plan",
		zap.String("user_id", userID.String()),
		zap.Time("week_of", weekOf),
		zap.Int("meal_types", len(prefs.MealTypes)),
		zap.Int("max_prep_minutes", prefs.MaxPrepMinutes),
	)

	pool, err := s.recipeRepo.FindForPlanning(ctx, mealplan.MinSlotScore, prefs.MaxPrepMinutes)
	if err != nil {
		return nil, errors.NewDatabaseError("load recipes for planning", err)
	}

	profile := &mealplan.Profile{DailyCalories: u.CaloricNeeds()}
	meals := s.generator.GenerateWeeklyMeals(pool, mealplan.Preferences{
		MealTypes:   prefs.MealTypes,
		CookingDays: prefs.CookingDays,
	}, profile)
	if meals.Count() == 0 {
		return nil, domainError(mealplan.ErrNoCandidates)
	}

	plan, err := mealplan.NewMealPlan(userID, weekOf, meals)
	if err != nil {
		return nil, domainError(err)
	}

	if !cmd.SkipInsights && s.advisor != nil {
		insights, err := s.advisor.Advise(ctx, outbound.AdviceRequest{
			DailyCalorieTarget: dailyTarget(profile),
			Nutrition:          plan.Nutrition(),
			Meals:              plan.Meals(),
			DietaryNotes:       append(append([]string{}, prefs.DietaryRestrictions...), prefs.Allergies...),
		})
		switch {
		case err != nil:
			s.logger.Warn("Plan insights unavailable", zap.String("user_id", userID.String()), zap.Error(err))
		case insights != nil:
			plan.AttachInsights(*insights)
		}
	}

	previous, err := s.planRepo.FindActive(ctx, userID, plan.WeekStart())
	if err != nil {
		return nil, errors.NewDatabaseError("find active plan", err)
	}
	if previous != nil {
		previous.Archive()
		if err := s.planRepo.Save(ctx, previous); err != nil {
			return nil, errors.NewDatabaseError("archive previous plan", err)
		}
	}

	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, errors.NewDatabaseError("save meal plan", err)
	}
	s.events.Publish(ctx, plan.Events()...)

	s.logger.Info("Meal plan generated",
		zap.String("plan_id", plan.ID().String()),
		zap.Int("meal_count", plan.Nutrition().MealCount),
		zap.Float64("daily_calories", plan.Nutrition().DailyCalories),
		zap.Bool("replaced_previous", previous != nil),
	)
	return EntityToDTO(plan), nil
}

// GetPlan returns one of the caller's plans
func (s *MealPlanService) GetPlan(ctx context.Context, userID, planID uuid.UUID) (*inbound.MealPlanDTO, error) {
	plan, err := s.loadOwned(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return EntityToDTO(plan), nil
}

// CurrentPlan returns this week's active plan, else the latest active plan
func (s *MealPlanService) CurrentPlan(ctx context.Context, userID uuid.UUID) (*inbound.MealPlanDTO, error) {
	plan, err := s.planRepo.FindActive(ctx, userID, shared.WeekStart(s.now()))
	if err != nil {
		return nil, errors.NewDatabaseError("find active plan", err)
	}
	if plan == nil {
		plan, err = s.planRepo.FindLatest(ctx, userID)
		if err != nil {
			return nil, errors.NewDatabaseError("find latest plan", err)
		}
	}
	if plan == nil {
		return nil, nil
	}
	return EntityToDTO(plan), nil
}

// ListPlans lists the caller's plans, newest week first
func (s *MealPlanService) ListPlans(ctx context.Context, userID uuid.UUID, params inbound.PaginationParams) (*inbound.MealPlanList, error) {
	params = params.Normalize()
	plans, total, err := s.planRepo.ListByUser(ctx, userID, params.Offset(), params.PageSize)
	if err != nil {
		return nil, errors.NewDatabaseError("list meal plans", err)
	}

	list := &inbound.MealPlanList{
		Plans:      make([]inbound.MealPlanDTO, 0, len(plans)),
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
	}
	for _, p := range plans {
		list.Plans = append(list.Plans, *EntityToDTO(p))
	}
	return list, nil
}

// DeletePlan removes one of the caller's plans
func (s *MealPlanService) DeletePlan(ctx context.Context, userID, planID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, planID); err != nil {
		return err
	}
	if err := s.planRepo.Delete(ctx, planID); err != nil {
		return errors.NewDatabaseError("delete meal plan", err)
	}
	s.logger.Info("Meal plan deleted", zap.String("plan_id", planID.String()))
	return nil
}

// SwapMeal replaces one slot, with the given recipe or a fresh random pick
func (s *MealPlanService) SwapMeal(ctx context.Context, userID uuid.UUID, cmd inbound.SwapMealCommand) (*inbound.MealPlanDTO, error) {
	plan, err := s.loadOwned(ctx, userID, cmd.PlanID)
	if err != nil {
		return nil, err
	}
	day, err := shared.ParseDay(cmd.Day)
	if err != nil {
		return nil, domainError(err)
	}
	slot, err := recipe.ParseMealType(cmd.MealType)
	if err != nil {
		return nil, domainError(err)
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var chosen *recipe.Recipe
	if cmd.RecipeID != nil {
		chosen, err = s.recipeRepo.FindByID(ctx, *cmd.RecipeID)
		if err != nil {
			return nil, errors.NewDatabaseError("find recipe", err)
		}
		if chosen == nil || !chosen.IsPublished() {
			return nil, errors.NewRecipeNotFoundError(cmd.RecipeID.String())
		}
	} else {
		pool, err := s.recipeRepo.FindForPlanning(ctx, mealplan.MinSlotScore, u.Preferences().MaxPrepMinutes)
		if err != nil {
			return nil, errors.NewDatabaseError("load recipes for planning", err)
		}
		var current *recipe.Recipe
		if meal, ok := plan.Meal(day, slot); ok {
			for _, r := range pool {
				if r.ID() == meal.RecipeID {
					current = r
					break
				}
			}
		}
		var ok bool
		chosen, ok = s.generator.PickReplacement(pool, slot, current)
		if !ok {
			return nil, domainError(mealplan.ErrNoCandidates)
		}
	}

	mealsPerDay := len(u.Preferences().MealTypes)
	target := mealplan.PerMealCalorieTarget(&mealplan.Profile{DailyCalories: u.CaloricNeeds()}, mealsPerDay)
	if err := plan.SwapMeal(day, slot, chosen, mealplan.ServingsFor(target, chosen.Nutrition().Calories)); err != nil {
		return nil, domainError(err)
	}

	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, errors.NewDatabaseError("save meal plan", err)
	}
	s.events.Publish(ctx, plan.Events()...)

	s.logger.Info("Meal swapped",
		zap.String("plan_id", plan.ID().String()),
		zap.String("day", string(day)),
		zap.String("meal_type", string(slot)),
		zap.String("recipe_id", chosen.ID().String()),
	)
	return EntityToDTO(plan), nil
}

// Helper methods

func (s *MealPlanService) loadUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if u == nil {
		return nil, errors.NewUserNotFoundError(userID.String())
	}
	return u, nil
}

// loadOwned hides plans of other users behind not-found
func (s *MealPlanService) loadOwned(ctx context.Context, userID, planID uuid.UUID) (*mealplan.MealPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, errors.NewDatabaseError("find meal plan", err)
	}
	if plan == nil || !plan.IsOwnedBy(userID) {
		return nil, errors.NewMealPlanNotFoundError(planID.String())
	}
	return plan, nil
}

func mergePreferences(stored user.Preferences, cmd inbound.GenerateMealPlanCommand) (user.Preferences, error) {
	prefs := stored
	if len(cmd.MealTypes) > 0 {
		prefs.MealTypes = make([]recipe.MealType, 0, len(cmd.MealTypes))
		for _, m := range cmd.MealTypes {
			mt, err := recipe.ParseMealType(m)
			if err != nil {
				return prefs, err
			}
			prefs.MealTypes = append(prefs.MealTypes, mt)
		}
	}
	if len(cmd.CookingDays) > 0 {
		prefs.CookingDays = make([]shared.Day, 0, len(cmd.CookingDays))
		for _, d := range cmd.CookingDays {
			day, err := shared.ParseDay(d)
			if err != nil {
				return prefs, err
			}
			prefs.CookingDays = append(prefs.CookingDays, day)
		}
	}
	if cmd.MaxPrepMinutes > 0 {
		prefs.MaxPrepMinutes = cmd.MaxPrepMinutes
	}
	return prefs, prefs.Validate()
}

func dailyTarget(profile *mealplan.Profile) int {
	if profile != nil && profile.DailyCalories > 0 {
		return profile.DailyCalories
	}
	return mealplan.DefaultDailyCalories
}

// domainError translates meal plan domain errors into application errors
func domainError(err error) error {
	switch {
	case stderrors.Is(err, mealplan.ErrPlanNotFound):
		return errors.NewAppError(errors.CodeMealPlanNotFound, "Meal plan not found", "")
	case stderrors.Is(err, mealplan.ErrPlanArchived):
		return errors.NewConflictError(err.Error())
	case stderrors.Is(err, mealplan.ErrNoCandidates):
		return errors.NewConflictError("No published recipe matches these preferences").WithCause(err)
	default:
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
}

// EntityToDTO converts a plan to its DTO; every day of the week is present
func EntityToDTO(plan *mealplan.MealPlan) *inbound.MealPlanDTO {
	n := plan.Nutrition()
	dto := &inbound.MealPlanDTO{
		ID:        plan.ID(),
		UserID:    plan.UserID(),
		WeekStart: plan.WeekStart(),
		Status:    string(plan.Status()),
		Meals:     make(map[string]map[string]inbound.PlannedMealDTO, len(shared.Week)),
		Nutrition: inbound.WeeklyNutritionDTO{
			TotalCalories: n.TotalCalories,
			TotalProtein:  n.TotalProtein,
			TotalCarbs:    n.TotalCarbs,
			TotalFat:      n.TotalFat,
			DailyCalories: n.DailyCalories,
			DailyProtein:  n.DailyProtein,
			DailyCarbs:    n.DailyCarbs,
			DailyFat:      n.DailyFat,
			AverageScore:  n.AverageScore,
			MealCount:     n.MealCount,
		},
		CreatedAt: plan.CreatedAt(),
		UpdatedAt: plan.UpdatedAt(),
	}
	for _, day := range shared.Week {
		dto.Meals[string(day)] = map[string]inbound.PlannedMealDTO{}
	}
	plan.Meals().Each(func(day shared.Day, slot recipe.MealType, m mealplan.PlannedMeal) {
		dto.Meals[string(day)][string(slot)] = inbound.PlannedMealDTO{
			RecipeID:              m.RecipeID,
			Title:                 m.Title,
			MealType:              string(m.MealType),
			Servings:              m.Servings,
			AntiInflammatoryScore: m.AntiInflammatoryScore,
			PrepMinutes:           int(m.PrepTime.Minutes()),
			PerServing: inbound.NutritionDTO{
				Calories:      m.PerServing.Calories,
				Protein:       m.PerServing.Protein,
				Carbohydrates: m.PerServing.Carbohydrates,
				Fat:           m.PerServing.Fat,
				Fiber:         m.PerServing.Fiber,
				Sugar:         m.PerServing.Sugar,
				Sodium:        m.PerServing.Sodium,
			},
		}
	})
	if in := plan.Insights(); in != nil {
		dto.Insights = &inbound.InsightsDTO{Summary: in.Summary, Tips: in.Tips, Source: in.Source}
	}
	return dto
}
