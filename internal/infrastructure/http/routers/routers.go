// Package routers binds the application services to RPC procedures
package routers

import (
	"time"

	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/pkg/errors"
)

// Services are the application services exposed over RPC
type Services struct {
	Recipes       inbound.RecipeService
	Users         inbound.UserService
	MealPlans     inbound.MealPlanService
	Subscriptions inbound.SubscriptionService
	Nutrition     inbound.NutritionService
}

// Ack is returned by mutations that have no other result
type Ack struct {
	Success bool `json:"success"`
}

var ok = Ack{Success: true}

// All builds every router
func All(b *rpc.Builder, s Services) []*rpc.Router {
	return []*rpc.Router{
		Recipes(b, s.Recipes),
		User(b, s.Users),
		MealPlans(b, s.MealPlans),
		Subscriptions(b, s.Subscriptions),
		Nutrition(b, s.Nutrition),
	}
}

// dateOrToday parses a YYYY-MM-DD date; empty means today
func dateOrToday(value string) (time.Time, error) {
	if value == "" {
		return shared.DateOf(time.Now()), nil
	}
	t, err := time.Parse(inbound.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.NewValidationError("date must be YYYY-MM-DD")
	}
	return t, nil
}
