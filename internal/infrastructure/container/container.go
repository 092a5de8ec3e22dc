// Package container wires the application together with Uber FX
package container

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nourishlab/nourish/internal/application/mealplan"
	"github.com/nourishlab/nourish/internal/application/nutrition"
	"github.com/nourishlab/nourish/internal/application/recipe"
	"github.com/nourishlab/nourish/internal/application/subscription"
	"github.com/nourishlab/nourish/internal/application/user"
	domainplan "github.com/nourishlab/nourish/internal/domain/mealplan"
	domainsub "github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/infrastructure/ai"
	"github.com/nourishlab/nourish/internal/infrastructure/billing/stripe"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/fooddata/openfoodfacts"
	"github.com/nourishlab/nourish/internal/infrastructure/http/handlers"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/http/routers"
	"github.com/nourishlab/nourish/internal/infrastructure/http/rpc"
	"github.com/nourishlab/nourish/internal/infrastructure/http/server"
	"github.com/nourishlab/nourish/internal/infrastructure/http/web"
	"github.com/nourishlab/nourish/internal/infrastructure/jobs"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/seed"
	"github.com/nourishlab/nourish/internal/infrastructure/realtime"
	"github.com/nourishlab/nourish/internal/infrastructure/security"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
	"github.com/nourishlab/nourish/pkg/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Event modules
	EventModule,

	// Background jobs
	JobsModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigPath is the configuration file to load. Empty searches the default locations.
type ConfigPath string

// ConfigModule provides configuration and its hot-reloaded runtime settings
var ConfigModule = fx.Options(
	fx.Provide(
		func(path ConfigPath) (*config.Config, error) {
			return config.Load(string(path))
		},
		NewRuntime,
	),
	fx.Invoke(func(path ConfigPath, rt *Runtime, log *zap.Logger) error {
		return config.Watch(string(path), log, rt.Apply)
	}),
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		return logger.NewAtomic(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// DatabaseModule provides the database connection
var DatabaseModule = fx.Options(
	fx.Provide(
		NewDatabase,
		func(db *Database) *gorm.DB { return db.DB },
	),
	fx.Invoke(seedDemoData),
)

// CacheModule provides caching
var CacheModule = fx.Provide(
	NewCache,
	func(c *Cache) outbound.CacheRepository { return c.Repo },
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormrepo.NewUserRepository,
	func(r *gormrepo.UserRepository) outbound.UserRepository { return r },
	func(r *gormrepo.UserRepository) middleware.AdminChecker { return r },
	fx.Annotate(
		gormrepo.NewRecipeRepository,
		fx.As(new(outbound.RecipeRepository)),
	),
	fx.Annotate(
		gormrepo.NewMealPlanRepository,
		fx.As(new(outbound.MealPlanRepository)),
	),
	fx.Annotate(
		gormrepo.NewNutritionRepository,
		fx.As(new(outbound.NutritionRepository)),
	),
	fx.Annotate(
		gormrepo.NewSubscriptionRepository,
		fx.As(new(outbound.SubscriptionRepository)),
	),
)

// ServiceModule provides adapters and application services
var ServiceModule = fx.Provide(
	monitoring.NewMetrics,
	newTracing,
	NewBreakers,
	func(cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) (outbound.TokenIssuer, error) {
		return security.NewTokenService(cfg.Auth, cache, log)
	},
	newLimiter,

	// External adapters
	func(cfg *config.Config, b *Breakers, metrics *monitoring.Metrics, log *zap.Logger) outbound.PlanAdvisor {
		return ai.NewAdvisor(cfg, b.AI, metrics, log)
	},
	func(cfg *config.Config, b *Breakers, metrics *monitoring.Metrics, log *zap.Logger) outbound.FoodLookup {
		return openfoodfacts.NewClient(cfg.FoodData, b.FoodData, metrics, log)
	},
	NewBillingProvider,

	// Application services
	fx.Annotate(
		recipe.NewRecipeService,
		fx.As(new(inbound.RecipeService)),
	),
	func(
		plans outbound.MealPlanRepository,
		recipes outbound.RecipeRepository,
		users outbound.UserRepository,
		advisor outbound.PlanAdvisor,
		events outbound.EventPublisher,
		log *zap.Logger,
	) inbound.MealPlanService {
		return mealplan.NewMealPlanService(plans, recipes, users, advisor, domainplan.NewGenerator(nil), events, log)
	},
	func(
		cfg *config.Config,
		repo outbound.NutritionRepository,
		recipes outbound.RecipeRepository,
		users outbound.UserRepository,
		foods outbound.FoodLookup,
		cache outbound.CacheRepository,
		events outbound.EventPublisher,
		log *zap.Logger,
	) inbound.NutritionService {
		return nutrition.NewNutritionService(repo, recipes, users, foods, cache, events, cfg.FoodData.CacheTTL, log)
	},
	NewSubscriptionService,
	func(s *subscription.SubscriptionService) inbound.SubscriptionService { return s },
	func(s *subscription.SubscriptionService) middleware.SubscriptionChecker { return s },
	fx.Annotate(
		user.NewUserService,
		fx.As(new(inbound.UserService)),
	),
)

// HTTPModule provides the HTTP server and its handlers
var HTTPModule = fx.Provide(
	func(cfg *config.Config, tokens outbound.TokenIssuer) *middleware.SessionResolver {
		return middleware.NewSessionResolver(tokens, cfg.Auth.CookieName)
	},
	middleware.NewGuard,
	newBuilder,
	func(b *rpc.Builder, s routers.Services) []*rpc.Router {
		return routers.All(b, s)
	},
	func(
		recipes inbound.RecipeService,
		users inbound.UserService,
		plans inbound.MealPlanService,
		subs inbound.SubscriptionService,
		food inbound.NutritionService,
	) routers.Services {
		return routers.Services{Recipes: recipes, Users: users, MealPlans: plans, Subscriptions: subs, Nutrition: food}
	},
	func(cfg *config.Config, users inbound.UserService, sessions *middleware.SessionResolver, log *zap.Logger) *handlers.AuthHandlers {
		return handlers.NewAuthHandlers(users, sessions, cfg.Auth, log)
	},
	handlers.NewWebhookHandler,
	newPages,
	NewHealth,
	newServer,
)

// EventModule provides the realtime hub and the domain event bus
var EventModule = fx.Provide(
	func(cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) *realtime.Hub {
		return realtime.NewHub(cfg.Server.AllowedOrigins, metrics, log)
	},
	func(cfg *config.Config, hub *realtime.Hub, metrics *monitoring.Metrics, log *zap.Logger) outbound.EventPublisher {
		if !cfg.Features.EnableRealtime {
			return realtime.NewEventBus(nil, metrics, log)
		}
		return realtime.NewEventBus(hub, metrics, log)
	},
)

// JobsModule schedules the background jobs
var JobsModule = fx.Invoke(registerJobs)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

func newTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tp, err := monitoring.NewTracingProvider(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return tp, nil
}

// newLimiter returns nil when rate limiting is disabled
func newLimiter(cfg *config.Config, cache outbound.CacheRepository, rt *Runtime, log *zap.Logger) security.Limiter {
	if !cfg.RateLimit.Enable {
		log.Info("Rate limiting is disabled")
		return nil
	}
	limiter := security.NewLimiter(cfg.RateLimit, cache, log)
	if setter, ok := limiter.(LimitSetter); ok {
		rt.SetLimiter(setter)
	}
	return limiter
}

// NewBillingProvider returns nil when no payment provider is configured
func NewBillingProvider(cfg *config.Config, b *Breakers, metrics *monitoring.Metrics, log *zap.Logger) outbound.BillingProvider {
	if !cfg.Billing.Enabled() {
		log.Info("Billing is disabled")
		return nil
	}
	return stripe.NewProvider(cfg.Billing, b.Billing, metrics, log)
}

// NewSubscriptionService builds the subscription service with the configured catalog
func NewSubscriptionService(
	cfg *config.Config,
	repo outbound.SubscriptionRepository,
	users outbound.UserRepository,
	provider outbound.BillingProvider,
	events outbound.EventPublisher,
	log *zap.Logger,
) *subscription.SubscriptionService {
	billing := cfg.Billing
	catalog := domainsub.NewCatalog(billing.MonthlyPriceID, billing.YearlyPriceID, billing.MonthlyPriceCents, billing.YearlyPriceCents)
	urls := subscription.RedirectURLs{
		Success:      billing.SuccessURL,
		Cancel:       billing.CancelURL,
		PortalReturn: billing.PortalReturnURL,
	}
	return subscription.NewSubscriptionService(repo, users, provider, catalog, urls, events, log)
}

type builderParams struct {
	fx.In

	Logger        *zap.Logger
	Metrics       *monitoring.Metrics
	Tracing       *monitoring.TracingProvider
	Limiter       security.Limiter
	Sessions      *middleware.SessionResolver
	Admins        middleware.AdminChecker
	Subscriptions middleware.SubscriptionChecker
}

func newBuilder(p builderParams) *rpc.Builder {
	return rpc.NewBuilder(rpc.Deps{
		Logger:        p.Logger,
		Metrics:       p.Metrics,
		Tracing:       p.Tracing,
		Limiter:       p.Limiter,
		Sessions:      p.Sessions,
		Admins:        p.Admins,
		Subscriptions: p.Subscriptions,
	})
}

// newPages returns nil when the web UI is disabled
func newPages(cfg *config.Config, users inbound.UserService, subs inbound.SubscriptionService, log *zap.Logger) (*web.Pages, error) {
	if !cfg.Features.EnableWebUI {
		return nil, nil
	}
	return web.NewPages(users, subs, web.Options{
		AppName:  cfg.App.Name,
		Realtime: cfg.Features.EnableRealtime,
	}, log)
}

type serverParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Health  *healthcheck.HealthCheck
	Guard   *middleware.Guard
	RPC     *rpc.Builder
	Routers []*rpc.Router
	Auth    *handlers.AuthHandlers
	Webhook *handlers.WebhookHandler
	Hub     *realtime.Hub
	Pages   *web.Pages
	Runtime *Runtime
}

func newServer(p serverParams) *server.Server {
	deps := server.Deps{
		Config:      p.Config,
		Logger:      p.Logger,
		Metrics:     p.Metrics,
		Health:      p.Health,
		Guard:       p.Guard,
		RPC:         p.RPC,
		Routers:     p.Routers,
		Auth:        p.Auth,
		Webhook:     p.Webhook,
		Pages:       p.Pages,
		Maintenance: p.Runtime.Maintenance,
	}
	if p.Config.Features.EnableRealtime {
		deps.Hub = p.Hub
	}
	return server.NewServer(deps)
}

// NewHealth registers a readiness check for every backing dependency
func NewHealth(cfg *config.Config, db *Database, cache *Cache, breakers *Breakers, log *zap.Logger) *healthcheck.HealthCheck {
	health := healthcheck.New(cfg.App.Version, log)
	health.Register("database", db.Checker)
	if cache.Checker != nil {
		health.Register("cache", cache.Checker)
	}
	health.Register("food_data", healthcheck.NewBreakerChecker(breakers.FoodData))
	if cfg.Billing.Enabled() {
		health.Register("billing", healthcheck.NewBreakerChecker(breakers.Billing))
	}
	if cfg.AI.Enabled && cfg.Features.EnableAIInsights {
		health.Register("ai", healthcheck.NewBreakerChecker(breakers.AI))
	}
	return health
}

func seedDemoData(lc fx.Lifecycle, cfg *config.Config, users outbound.UserRepository, recipes outbound.RecipeRepository, log *zap.Logger) error {
	if !cfg.Database.SeedDemoData {
		return nil
	}
	seeder, err := seed.NewSeeder(users, recipes, nil, log)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			result, err := seeder.Run(ctx, seed.Options{
				AdminEmail:    cfg.Database.SeedAdminEmail,
				AdminName:     "Administrator",
				AdminPassword: cfg.Database.SeedAdminPassword,
			})
			if err != nil {
				return err
			}
			log.Info("Demo data seeded",
				zap.Bool("admin_created", result.AdminCreated),
				zap.Int("recipes_created", result.RecipesCreated),
			)
			return nil
		},
	})
	return nil
}

type jobsParams struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Config        *config.Config
	Subscriptions inbound.SubscriptionService
	Limiter       security.Limiter
	Cache         outbound.CacheRepository
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

func registerJobs(p jobsParams) error {
	if !p.Config.Jobs.Enable {
		p.Logger.Info("Background jobs are disabled")
		return nil
	}

	deps := jobs.Deps{
		Subscriptions: p.Subscriptions,
		Metrics:       p.Metrics,
		Logger:        p.Logger,
	}
	if cleaner, ok := p.Limiter.(jobs.Cleaner); ok {
		deps.Limiter = cleaner
	}
	if purger, ok := p.Cache.(jobs.Purger); ok {
		deps.Cache = purger
	}

	scheduler := jobs.NewScheduler(p.Metrics, p.Logger)
	if err := jobs.Register(scheduler, p.Config, deps); err != nil {
		return err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: scheduler.Stop,
	})
	return nil
}

// RegisterLifecycleHooks starts the realtime hub and the HTTP server
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	hub *realtime.Hub,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting Nourish",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
			)

			if cfg.Features.EnableRealtime {
				go hub.Run(context.Background())
			}

			go func() {
				if err := srv.Start(); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Nourish")

			timeout := cfg.Server.ShutdownTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			hub.Stop()

			_ = log.Sync()
			return err
		},
	})
}
