package gorm

import (
	"time"

	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/domain/user"
)

// UserToModel converts a domain user to a GORM model
func UserToModel(u *user.User) *UserModel {
	prefs := u.Preferences()
	model := &UserModel{
		ID:           u.ID(),
		Email:        u.Email(),
		Name:         u.Name(),
		PasswordHash: u.PasswordHash(),
		IsActive:     u.IsActive(),
		Role:         string(u.Role()),
		Preferences: UserPreferencesModel{
			MealTypes:           mealTypesToStrings(prefs.MealTypes),
			CookingDays:         daysToStrings(prefs.CookingDays),
			MaxPrepMinutes:      prefs.MaxPrepMinutes,
			DietaryRestrictions: prefs.DietaryRestrictions,
			Allergies:           prefs.Allergies,
		},
		CreatedAt:   u.CreatedAt(),
		UpdatedAt:   u.UpdatedAt(),
		LastLoginAt: u.LastLoginAt(),
	}

	if p := u.Profile(); p != nil {
		model.HasProfile = true
		model.Profile = UserProfileModel{
			Age:                p.Age,
			Sex:                string(p.Sex),
			HeightCm:           p.HeightCm,
			WeightKg:           p.WeightKg,
			ActivityLevel:      string(p.ActivityLevel),
			Goal:               string(p.Goal),
			DailyCalorieTarget: p.DailyCalorieTarget,
		}
	}

	return model
}

// ModelToUser converts a GORM model to a domain user
func ModelToUser(m *UserModel) *user.User {
	var profile *user.Profile
	if m.HasProfile {
		profile = &user.Profile{
			Age:                m.Profile.Age,
			Sex:                user.Sex(m.Profile.Sex),
			HeightCm:           m.Profile.HeightCm,
			WeightKg:           m.Profile.WeightKg,
			ActivityLevel:      user.ActivityLevel(m.Profile.ActivityLevel),
			Goal:               user.Goal(m.Profile.Goal),
			DailyCalorieTarget: m.Profile.DailyCalorieTarget,
		}
	}

	return user.ReconstructUser(user.Snapshot{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		Role:         user.Role(m.Role),
		Profile:      profile,
		Preferences: user.Preferences{
			MealTypes:           stringsToMealTypes(m.Preferences.MealTypes),
			CookingDays:         stringsToDays(m.Preferences.CookingDays),
			MaxPrepMinutes:      m.Preferences.MaxPrepMinutes,
			DietaryRestrictions: []string(m.Preferences.DietaryRestrictions),
			Allergies:           []string(m.Preferences.Allergies),
		},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		LastLoginAt: m.LastLoginAt,
	})
}

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	ingredients := make([]IngredientRecord, len(r.Ingredients()))
	for i, ing := range r.Ingredients() {
		ingredients[i] = IngredientRecord{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit, Optional: ing.Optional}
	}
	instructions := make([]InstructionRecord, len(r.Instructions()))
	for i, inst := range r.Instructions() {
		instructions[i] = InstructionRecord{Step: inst.StepNumber, Description: inst.Description}
	}

	n := r.Nutrition()
	return &RecipeModel{
		ID:                    r.ID(),
		Version:               r.Version(),
		Title:                 r.Title(),
		Description:           r.Description(),
		AuthorID:              r.AuthorID(),
		ImageURL:              r.ImageURL(),
		Ingredients:           NewJSON(ingredients),
		Instructions:          NewJSON(instructions),
		Calories:              n.Calories,
		Protein:               n.Protein,
		Carbohydrates:         n.Carbohydrates,
		Fat:                   n.Fat,
		Fiber:                 n.Fiber,
		Sugar:                 n.Sugar,
		Sodium:                n.Sodium,
		MealTypes:             mealTypesToStrings(r.MealTypes()),
		AntiInflammatoryScore: r.AntiInflammatoryScore(),
		Tags:                  StringSlice(r.Tags()),
		PrepTimeMinutes:       int(r.PrepTime().Minutes()),
		CookTimeMinutes:       int(r.CookTime().Minutes()),
		TotalTimeMinutes:      int(r.TotalTime().Minutes()),
		Servings:              r.Servings(),
		Status:                string(r.Status()),
		PublishedAt:           r.PublishedAt(),
		CreatedAt:             r.CreatedAt(),
		UpdatedAt:             r.UpdatedAt(),
	}
}

// ModelToRecipe converts a GORM model to a domain recipe
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	ingredients := make([]recipe.Ingredient, len(m.Ingredients.Data))
	for i, ing := range m.Ingredients.Data {
		ingredients[i] = recipe.Ingredient{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit, Optional: ing.Optional}
	}
	instructions := make([]recipe.Instruction, len(m.Instructions.Data))
	for i, inst := range m.Instructions.Data {
		instructions[i] = recipe.Instruction{StepNumber: inst.Step, Description: inst.Description}
	}

	return recipe.ReconstructRecipe(recipe.Snapshot{
		ID:           m.ID,
		Version:      m.Version,
		Title:        m.Title,
		Description:  m.Description,
		AuthorID:     m.AuthorID,
		ImageURL:     m.ImageURL,
		Ingredients:  ingredients,
		Instructions: instructions,
		Nutrition: recipe.NutritionInfo{
			Calories:      m.Calories,
			Protein:       m.Protein,
			Carbohydrates: m.Carbohydrates,
			Fat:           m.Fat,
			Fiber:         m.Fiber,
			Sugar:         m.Sugar,
			Sodium:        m.Sodium,
		},
		MealTypes:             stringsToMealTypes(m.MealTypes),
		AntiInflammatoryScore: m.AntiInflammatoryScore,
		Tags:                  []string(m.Tags),
		PrepTime:              time.Duration(m.PrepTimeMinutes) * time.Minute,
		CookTime:              time.Duration(m.CookTimeMinutes) * time.Minute,
		Servings:              m.Servings,
		Status:                recipe.RecipeStatus(m.Status),
		PublishedAt:           m.PublishedAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	})
}

// MealPlanToModel converts a domain meal plan to a GORM model
func MealPlanToModel(p *mealplan.MealPlan) *MealPlanModel {
	meals := make(map[string]map[string]PlannedMealRecord, len(shared.Week))
	for _, day := range shared.Week {
		meals[string(day)] = map[string]PlannedMealRecord{}
	}
	p.Meals().Each(func(day shared.Day, slot recipe.MealType, m mealplan.PlannedMeal) {
		meals[string(day)][string(slot)] = PlannedMealRecord{
			RecipeID:              m.RecipeID,
			Title:                 m.Title,
			MealType:              string(m.MealType),
			MealTypes:             mealTypesToStrings(m.MealTypes),
			Servings:              m.Servings,
			AntiInflammatoryScore: m.AntiInflammatoryScore,
			PrepMinutes:           int(m.PrepTime.Minutes()),
			Calories:              m.PerServing.Calories,
			Protein:               m.PerServing.Protein,
			Carbohydrates:         m.PerServing.Carbohydrates,
			Fat:                   m.PerServing.Fat,
			Fiber:                 m.PerServing.Fiber,
			Sugar:                 m.PerServing.Sugar,
			Sodium:                m.PerServing.Sodium,
		}
	})

	var insights *InsightsRecord
	if in := p.Insights(); in != nil {
		insights = &InsightsRecord{Summary: in.Summary, Tips: in.Tips, Source: in.Source}
	}

	n := p.Nutrition()
	return &MealPlanModel{
		ID:            p.ID(),
		UserID:        p.UserID(),
		WeekStart:     p.WeekStart(),
		Status:        string(p.Status()),
		Meals:         NewJSON(meals),
		Insights:      NewJSON(insights),
		MealCount:     n.MealCount,
		DailyCalories: n.DailyCalories,
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
	}
}

// ModelToMealPlan converts a GORM model to a domain meal plan
func ModelToMealPlan(m *MealPlanModel) *mealplan.MealPlan {
	meals := mealplan.NewWeeklyMeals()
	for dayName, slots := range m.Meals.Data {
		day, err := shared.ParseDay(dayName)
		if err != nil {
			continue
		}
		for slotName, rec := range slots {
			meals[day][recipe.MealType(slotName)] = mealplan.PlannedMeal{
				RecipeID:              rec.RecipeID,
				Title:                 rec.Title,
				MealType:              recipe.MealType(rec.MealType),
				MealTypes:             stringsToMealTypes(rec.MealTypes),
				Servings:              rec.Servings,
				AntiInflammatoryScore: rec.AntiInflammatoryScore,
				PrepTime:              time.Duration(rec.PrepMinutes) * time.Minute,
				PerServing: recipe.NutritionInfo{
					Calories:      rec.Calories,
					Protein:       rec.Protein,
					Carbohydrates: rec.Carbohydrates,
					Fat:           rec.Fat,
					Fiber:         rec.Fiber,
					Sugar:         rec.Sugar,
					Sodium:        rec.Sodium,
				},
			}
		}
	}

	var insights *mealplan.Insights
	if in := m.Insights.Data; in != nil {
		insights = &mealplan.Insights{Summary: in.Summary, Tips: in.Tips, Source: in.Source}
	}

	return mealplan.ReconstructMealPlan(mealplan.Snapshot{
		ID:        m.ID,
		UserID:    m.UserID,
		WeekStart: m.WeekStart.UTC(),
		Meals:     meals,
		Insights:  insights,
		Status:    mealplan.Status(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	})
}

// SubscriptionToModel converts a domain subscription to a GORM model
func SubscriptionToModel(s *subscription.Subscription) *SubscriptionModel {
	model := &SubscriptionModel{
		ID:                     s.ID(),
		UserID:                 s.UserID(),
		CustomerID:             s.CustomerID(),
		ProviderSubscriptionID: s.ProviderSubscriptionID(),
		Plan:                   string(s.Plan()),
		Status:                 string(s.Status()),
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd(),
		CreatedAt:              s.CreatedAt(),
		UpdatedAt:              s.UpdatedAt(),
	}
	if end := s.CurrentPeriodEnd(); !end.IsZero() {
		end = end.UTC()
		model.CurrentPeriodEnd = &end
	}
	return model
}

// ModelToSubscription converts a GORM model to a domain subscription
func ModelToSubscription(m *SubscriptionModel) *subscription.Subscription {
	var periodEnd time.Time
	if m.CurrentPeriodEnd != nil {
		periodEnd = m.CurrentPeriodEnd.UTC()
	}
	return subscription.ReconstructSubscription(subscription.Snapshot{
		ID:                     m.ID,
		UserID:                 m.UserID,
		CustomerID:             m.CustomerID,
		ProviderSubscriptionID: m.ProviderSubscriptionID,
		Plan:                   subscription.PlanID(m.Plan),
		Status:                 subscription.Status(m.Status),
		CurrentPeriodEnd:       periodEnd,
		CancelAtPeriodEnd:      m.CancelAtPeriodEnd,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	})
}

// EntryToModel converts a food log entry to a GORM model
func EntryToModel(e *nutrition.FoodLogEntry) *FoodLogModel {
	per := e.PerServing()
	return &FoodLogModel{
		ID:        e.ID(),
		UserID:    e.UserID(),
		Date:      shared.DateOf(e.Date()),
		MealType:  string(e.MealType()),
		RecipeID:  e.RecipeID(),
		Name:      e.Name(),
		Servings:  e.Servings(),
		Calories:  per.Calories,
		Protein:   per.Protein,
		Carbs:     per.Carbs,
		Fat:       per.Fat,
		Fiber:     per.Fiber,
		Score:     e.Score(),
		CreatedAt: e.CreatedAt(),
	}
}

// ModelToEntry converts a GORM model to a food log entry
func ModelToEntry(m *FoodLogModel) *nutrition.FoodLogEntry {
	return nutrition.ReconstructEntry(nutrition.EntrySnapshot{
		ID:       m.ID,
		UserID:   m.UserID,
		Date:     shared.DateOf(m.Date),
		MealType: recipe.MealType(m.MealType),
		RecipeID: m.RecipeID,
		Name:     m.Name,
		Servings: m.Servings,
		PerServing: nutrition.Macros{
			Calories: m.Calories,
			Protein:  m.Protein,
			Carbs:    m.Carbs,
			Fat:      m.Fat,
			Fiber:    m.Fiber,
		},
		Score:     m.Score,
		CreatedAt: m.CreatedAt,
	})
}

func mealTypesToStrings(in []recipe.MealType) StringSlice {
	out := make(StringSlice, len(in))
	for i, m := range in {
		out[i] = string(m)
	}
	return out
}

func stringsToMealTypes(in []string) []recipe.MealType {
	out := make([]recipe.MealType, len(in))
	for i, s := range in {
		out[i] = recipe.MealType(s)
	}
	return out
}

func daysToStrings(in []shared.Day) StringSlice {
	out := make(StringSlice, len(in))
	for i, d := range in {
		out[i] = string(d)
	}
	return out
}

func stringsToDays(in []string) []shared.Day {
	out := make([]shared.Day, len(in))
	for i, s := range in {
		out[i] = shared.Day(s)
	}
	return out
}
