package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/memory"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/migrations"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/postgres"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/redis"
	"github.com/nourishlab/nourish/internal/infrastructure/persistence/sqlite"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

const connectTimeout = 10 * time.Second

// Database is the open connection plus its readiness check
type Database struct {
	DB      *gorm.DB
	Checker healthcheck.Checker
	close   func() error
}

// Close releases the connection
func (d *Database) Close() error {
	return d.close()
}

// NewDatabase connects to the configured driver. Postgres schemas are managed
// by versioned migrations; SQLite is auto-migrated from the models.
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (*Database, error) {
	db, err := OpenDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := metrics.RegisterDB(sqlDB, cfg.Database.Driver); err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

// OpenDatabase connects without lifecycle hooks, for one-shot commands
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	gormLog := gormrepo.NewLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold)

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := migrateUp(cfg, log); err != nil {
				return nil, err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		cm, err := postgres.NewConnectionManager(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &Database{
			DB:      cm.DB(),
			Checker: healthcheck.NewPoolChecker(cm.Pool()),
			close:   cm.Close,
		}, nil

	default:
		db, err := sqlite.SetupDatabase(cfg.Database.SQLitePath, gormLog)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))
		return &Database{
			DB:      db,
			Checker: healthcheck.PingFunc(sqlDB.PingContext),
			close:   sqlDB.Close,
		}, nil
	}
}

func migrateUp(cfg *config.Config, log *zap.Logger) error {
	m, err := migrations.New(cfg.GetMigrateURL(), log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// Cache is the configured cache plus an optional readiness check
type Cache struct {
	Repo    outbound.CacheRepository
	Checker healthcheck.Checker
}

// NewCache connects to Redis when enabled and falls back to process memory
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*Cache, error) {
	if !cfg.Redis.Enabled {
		log.Info("Using in-memory cache")
		return &Cache{Repo: memory.NewCacheRepository()}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := redis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return &Cache{
		Repo:    redis.NewCacheRepository(client, cfg.Redis.KeyPrefix, log),
		Checker: healthcheck.NewRedisChecker(client),
	}, nil
}

// Breakers guard the external services
type Breakers struct {
	Billing  *healthcheck.CircuitBreaker
	FoodData *healthcheck.CircuitBreaker
	AI       *healthcheck.CircuitBreaker
}

// NewBreakers creates one breaker per external service
func NewBreakers(log *zap.Logger) *Breakers {
	log = log.Named("breaker")
	newBreaker := func(name string) *healthcheck.CircuitBreaker {
		return healthcheck.NewCircuitBreaker(name, healthcheck.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Timeout:          30 * time.Second,
			OnStateChange: func(name string, from, to healthcheck.CircuitBreakerState) {
				log.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}
	return &Breakers{
		Billing:  newBreaker("stripe"),
		FoodData: newBreaker("openfoodfacts"),
		AI:       newBreaker("openai"),
	}
}
