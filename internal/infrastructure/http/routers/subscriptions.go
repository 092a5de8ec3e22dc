package routers

import (
	"context"

	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

// Subscriptions exposes plans, checkout and provider reconciliation
func Subscriptions(b *rpc.Builder, svc inbound.SubscriptionService) *rpc.Router {
	return rpc.NewRouter("subscriptions").
		Procedure("plans", rpc.Query(b.Public, func(ctx context.Context, _ rpc.Empty) ([]inbound.PlanDTO, error) {
			return svc.Plans(ctx), nil
		})).
		Procedure("status", rpc.Query(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.SubscriptionStatusDTO, error) {
			return svc.Status(ctx, rpc.UserID(ctx))
		})).
		Procedure("createCheckout", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.CheckoutCommand) (*inbound.CheckoutDTO, error) {
			return svc.CreateCheckout(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("createPortal", rpc.Mutation(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.PortalDTO, error) {
			return svc.CreatePortal(ctx, rpc.UserID(ctx))
		})).
		Procedure("sync", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.SyncCommand) (*inbound.SubscriptionStatusDTO, error) {
			return svc.Sync(ctx, in.UserID)
		})).
		Procedure("syncAll", rpc.Mutation(b.Admin, func(ctx context.Context, _ rpc.Empty) (*inbound.SyncReport, error) {
			return svc.SyncAll(ctx)
		}))
}
