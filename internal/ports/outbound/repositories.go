// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/domain/user"
)

// Repositories return (nil, nil) from Find* methods when no row matches.

// RecipeRepository defines the interface for recipe persistence
type RecipeRepository interface {
	Create(ctx context.Context, recipe *recipe.Recipe) error
	Update(ctx context.Context, recipe *recipe.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error)
	List(ctx context.Context, filter RecipeFilter) ([]*recipe.Recipe, int64, error)

	// FindForPlanning returns published recipes with at least minScore and,
	// when maxPrepMinutes > 0, a prep time within the limit
	FindForPlanning(ctx context.Context, minScore, maxPrepMinutes int) ([]*recipe.Recipe, error)

	BulkCreate(ctx context.Context, recipes []*recipe.Recipe) error

	// Favorites
	AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	IsFavorite(ctx context.Context, userID, recipeID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.Recipe, int64, error)
}

// RecipeFilter narrows recipe listings
type RecipeFilter struct {
	MealType           recipe.MealType
	MinScore           int
	MaxPrepMinutes     int
	Search             string
	Tag                string
	IncludeUnpublished bool
	Offset             int
	Limit              int
	OrderBy            string
	OrderDir           string
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *user.User) error
	Update(ctx context.Context, user *user.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*user.User, int64, error)
	// IsAdmin is a narrow role lookup used by request guards
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

// MealPlanRepository defines the interface for meal plan persistence
type MealPlanRepository interface {
	Save(ctx context.Context, plan *mealplan.MealPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*mealplan.MealPlan, error)
	// FindActive returns the user's active plan for the week starting at weekStart
	FindActive(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*mealplan.MealPlan, error)
	// FindLatest returns the most recent active plan regardless of week
	FindLatest(ctx context.Context, userID uuid.UUID) (*mealplan.MealPlan, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*mealplan.MealPlan, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *subscription.Subscription) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
	FindByCustomerID(ctx context.Context, customerID string) (*subscription.Subscription, error)
	// ListWithProvider returns subscriptions linked to a provider subscription
	ListWithProvider(ctx context.Context) ([]*subscription.Subscription, error)
	// HasActive evaluates the active-subscription rule in the database
	HasActive(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
}

// NutritionRepository persists food logs and goals
type NutritionRepository interface {
	CreateEntry(ctx context.Context, entry *nutrition.FoodLogEntry) error
	FindEntry(ctx context.Context, id uuid.UUID) (*nutrition.FoodLogEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	// ListEntries returns entries dated within [from, to]
	ListEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*nutrition.FoodLogEntry, error)
	GetGoals(ctx context.Context, userID uuid.UUID) (*nutrition.Goals, error)
	SaveGoals(ctx context.Context, goals nutrition.Goals) error
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Increment bumps a counter, starting its TTL on first use
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
