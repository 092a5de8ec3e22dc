// Package ai produces coaching insights for meal plans
package ai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/ports/outbound"
)

// SourceRules marks insights produced without a model
const SourceRules = "rules"

const (
	calorieTolerance = 0.10
	minProteinShare  = 0.15
	maxFatShare      = 0.35
	goodScore        = 7.0
	lowMealScore     = 5
	maxTips          = 5
)

// RuleAdvisor derives insights from the plan numbers alone. The same plan
// always yields the same insights.
type RuleAdvisor struct{}

// NewRuleAdvisor creates the rule-based advisor
func NewRuleAdvisor() *RuleAdvisor {
	return &RuleAdvisor{}
}

// Advise implements outbound.PlanAdvisor
func (RuleAdvisor) Advise(_ context.Context, req outbound.AdviceRequest) (*mealplan.Insights, error) {
	n := req.Nutrition
	target := req.DailyCalorieTarget
	if target <= 0 {
		target = mealplan.DefaultDailyCalories
	}

	var tips []string
	diff := (n.DailyCalories - float64(target)) / float64(target)
	switch {
	case diff > calorieTolerance:
		tips = append(tips, fmt.Sprintf("Daily calories average %.0f, above your %d target. Try smaller servings at dinner.", n.DailyCalories, target))
	case diff < -calorieTolerance:
		tips = append(tips, fmt.Sprintf("Daily calories average %.0f, below your %d target. Add a snack such as nuts or yogurt.", n.DailyCalories, target))
	}

	if n.DailyCalories > 0 {
		if share := n.DailyProtein * 4 / n.DailyCalories; share < minProteinShare {
			tips = append(tips, "Protein is on the low side. Add legumes, fish or eggs to a few meals.")
		}
		if share := n.DailyFat * 9 / n.DailyCalories; share > maxFatShare {
			tips = append(tips, "Fat makes up more than a third of calories. Favour olive oil and oily fish over fried foods.")
		}
	}

	if low := lowScoringMeals(req.Meals); len(low) > 0 {
		tips = append(tips, fmt.Sprintf("Consider swapping %s for a higher scoring recipe.", strings.Join(low, ", ")))
	}

	if empty := len(shared.Week)*len(recipe.AllMealTypes) - n.MealCount; n.MealCount > 0 && empty > 0 {
		tips = append(tips, fmt.Sprintf("%d meal slots are open this week. Plan leftovers or simple staples for them.", empty))
	}

	if len(req.DietaryNotes) > 0 {
		tips = append(tips, fmt.Sprintf("Check labels for %s when shopping.", strings.Join(req.DietaryNotes, ", ")))
	}

	if len(tips) == 0 {
		tips = append(tips, "This week is well balanced. Keep drinking water and eating the rainbow.")
	}
	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}

	return &mealplan.Insights{
		Summary: summary(n),
		Tips:    tips,
		Source:  SourceRules,
	}, nil
}

func summary(n mealplan.WeeklyNutrition) string {
	quality := "a solid"
	switch {
	case n.AverageScore >= goodScore:
		quality = "a strongly anti-inflammatory"
	case n.AverageScore < lowMealScore:
		quality = "a mixed"
	}
	return fmt.Sprintf("%d meals with %s average score of %.1f and about %d kcal per day.",
		n.MealCount, quality, n.AverageScore, int(math.Round(n.DailyCalories)))
}

func lowScoringMeals(meals mealplan.WeeklyMeals) []string {
	seen := make(map[string]struct{})
	meals.Each(func(_ shared.Day, _ recipe.MealType, m mealplan.PlannedMeal) {
		if m.AntiInflammatoryScore < lowMealScore {
			seen[m.Title] = struct{}{}
		}
	})
	titles := make([]string, 0, len(seen))
	for title := range seen {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	if len(titles) > 3 {
		titles = titles[:3]
	}
	return titles
}
