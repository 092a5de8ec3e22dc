package routers

import (
	"context"

	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

// MealPlans exposes weekly plans. Generating and swapping need a subscription.
func MealPlans(b *rpc.Builder, svc inbound.MealPlanService) *rpc.Router {
	return rpc.NewRouter("mealPlans").
		Procedure("current", rpc.Query(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.MealPlanDTO, error) {
			return svc.CurrentPlan(ctx, rpc.UserID(ctx))
		})).
		Procedure("list", rpc.Query(b.Protected, func(ctx context.Context, in inbound.PaginationParams) (*inbound.MealPlanList, error) {
			return svc.ListPlans(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("byId", rpc.Query(b.Protected, func(ctx context.Context, in inbound.IDInput) (*inbound.MealPlanDTO, error) {
			return svc.GetPlan(ctx, rpc.UserID(ctx), in.ID)
		})).
		Procedure("delete", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.IDInput) (Ack, error) {
			if err := svc.DeletePlan(ctx, rpc.UserID(ctx), in.ID); err != nil {
				return Ack{}, err
			}
			return ok, nil
		})).
		Procedure("generate", rpc.Mutation(b.Subscribed, func(ctx context.Context, in inbound.GenerateMealPlanCommand) (*inbound.MealPlanDTO, error) {
			return svc.Generate(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("swapMeal", rpc.Mutation(b.Subscribed, func(ctx context.Context, in inbound.SwapMealCommand) (*inbound.MealPlanDTO, error) {
			return svc.SwapMeal(ctx, rpc.UserID(ctx), in)
		}))
}
