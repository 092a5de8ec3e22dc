package routers

import (
	"context"

	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
)

// Nutrition exposes the food log and goals. Weekly trends need a subscription.
func Nutrition(b *rpc.Builder, svc inbound.NutritionService) *rpc.Router {
	return rpc.NewRouter("nutrition").
		Procedure("log", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.LogFoodCommand) (*inbound.FoodLogEntryDTO, error) {
			return svc.LogFood(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("deleteEntry", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.IDInput) (Ack, error) {
			if err := svc.DeleteEntry(ctx, rpc.UserID(ctx), in.ID); err != nil {
				return Ack{}, err
			}
			return ok, nil
		})).
		Procedure("daily", rpc.Query(b.Protected, func(ctx context.Context, in inbound.DateQuery) (*inbound.DailySummaryDTO, error) {
			day, err := dateOrToday(in.Date)
			if err != nil {
				return nil, err
			}
			return svc.DailySummary(ctx, rpc.UserID(ctx), day)
		})).
		Procedure("trends", rpc.Query(b.Subscribed, func(ctx context.Context, in inbound.DateQuery) (*inbound.WeeklyTrendDTO, error) {
			end, err := dateOrToday(in.Date)
			if err != nil {
				return nil, err
			}
			return svc.WeeklyTrends(ctx, rpc.UserID(ctx), end)
		})).
		Procedure("goals", rpc.Query(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.GoalsDTO, error) {
			return svc.GetGoals(ctx, rpc.UserID(ctx))
		})).
		Procedure("setGoals", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.SetGoalsCommand) (*inbound.GoalsDTO, error) {
			return svc.SetGoals(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("lookup", rpc.Query(b.Protected, func(ctx context.Context, in inbound.FoodLookupQuery) ([]outbound.FoodItem, error) {
			return svc.LookupFood(ctx, in)
		}))
}
