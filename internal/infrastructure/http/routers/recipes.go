package routers

import (
	"context"

	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/ports/inbound"
)

// Recipes exposes the catalog. Reads are public; unpublished recipes are
// visible to admins only.
func Recipes(b *rpc.Builder, svc inbound.RecipeService) *rpc.Router {
	return rpc.NewRouter("recipes").
		Procedure("list", rpc.Query(b.Public, func(ctx context.Context, in inbound.RecipeQuery) (*inbound.RecipeList, error) {
			in.IncludeUnpublished = rpc.IsAdminCaller(ctx)
			return svc.ListRecipes(ctx, in)
		})).
		Procedure("byId", rpc.Query(b.Public, func(ctx context.Context, in inbound.IDInput) (*inbound.RecipeDTO, error) {
			return svc.GetRecipe(ctx, in.ID, rpc.IsAdminCaller(ctx))
		})).
		Procedure("create", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
			in.AuthorID = rpc.UserID(ctx)
			return svc.CreateRecipe(ctx, in)
		})).
		Procedure("update", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
			return svc.UpdateRecipe(ctx, in)
		})).
		Procedure("publish", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.IDInput) (*inbound.RecipeDTO, error) {
			return svc.PublishRecipe(ctx, in.ID)
		})).
		Procedure("archive", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.IDInput) (*inbound.RecipeDTO, error) {
			return svc.ArchiveRecipe(ctx, in.ID)
		})).
		Procedure("delete", rpc.Mutation(b.Admin, func(ctx context.Context, in inbound.IDInput) (Ack, error) {
			if err := svc.DeleteRecipe(ctx, in.ID); err != nil {
				return Ack{}, err
			}
			return ok, nil
		})).
		Procedure("toggleFavorite", rpc.Mutation(b.Protected, func(ctx context.Context, in inbound.IDInput) (*inbound.FavoriteResult, error) {
			return svc.ToggleFavorite(ctx, rpc.UserID(ctx), in.ID)
		})).
		Procedure("favorites", rpc.Query(b.Protected, func(ctx context.Context, in inbound.PaginationParams) (*inbound.RecipeList, error) {
			return svc.ListFavorites(ctx, rpc.UserID(ctx), in)
		}))
}
