package routers

import (
	"context"

	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

// User exposes the caller's account and user administration
func User(b *rpc.Builder, svc inbound.UserService) *rpc.Router {
	return rpc.NewRouter("user").
		Procedure("me", rpc.Query(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.UserDTO, error) {
			return svc.GetMe(ctx, rpc.UserID(ctx))
		})).
		Procedure("updateProfile", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.UpdateProfileCommand) (*inbound.UserDTO, error) {
			return svc.UpdateProfile(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("updatePreferences", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.UpdatePreferencesCommand) (*inbound.UserDTO, error) {
			return svc.UpdatePreferences(ctx, rpc.UserID(ctx), in)
		})).
		Procedure("changePassword", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.ChangePasswordCommand) (Ack, error) {
			if err := svc.ChangePassword(ctx, rpc.UserID(ctx), in); err != nil {
				return Ack{}, err
			}
			return ok, nil
		})).
		Procedure("dashboard", rpc.Query(b.Protected, func(ctx context.Context, _ rpc.Empty) (*inbound.DashboardDTO, error) {
			return svc.Dashboard(ctx, rpc.UserID(ctx))
		})).
		Procedure("list", rpc.Query(b.Admin, func(ctx context.Context, in inbound.PaginationParams) (*inbound.UserList, error) {
			return svc.ListUsers(ctx, in)
		})).
		Procedure("setRole", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.SetRoleCommand) (*inbound.UserDTO, error) {
			return svc.SetRole(ctx, in)
		}))
}
