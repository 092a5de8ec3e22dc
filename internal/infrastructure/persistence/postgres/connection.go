// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	gormrepo "github.com/nourishlab/nourish/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

const pingTimeout = 10 * time.Second

// ConnectionManager owns the GORM handle, its read replicas and a raw pgx
// pool used for readiness probes
type ConnectionManager struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewConnectionManager connects to the primary, registers replicas and opens the probe pool
func NewConnectionManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ConnectionManager, error) {
	log = log.Named("postgres")
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn}), &gorm.Config{
		Logger:                 gormrepo.NewLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg.Database)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cm := &ConnectionManager{db: db, sqlDB: sqlDB, logger: log}

	if err := cm.registerReplicas(cfg.Database); err != nil {
		log.Warn("Failed to register read replicas", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open probe pool: %w", err)
	}
	cm.pool = pool

	log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("replicas", len(cfg.Database.ReplicaDSNs)),
	)
	return cm, nil
}

func configurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// registerReplicas routes reads to replicas via dbresolver. Writes and raw
// queries inside transactions stay on the primary.
func (cm *ConnectionManager) registerReplicas(cfg config.DatabaseConfig) error {
	if len(cfg.ReplicaDSNs) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cfg.ReplicaDSNs))
	for i, dsn := range cfg.ReplicaDSNs {
		replicas[i] = postgres.Open(dsn)
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	})
	if cfg.MaxOpenConns > 0 {
		resolver = resolver.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		resolver = resolver.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := cm.db.Use(resolver); err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(replicas)))
	return nil
}

// DB returns the GORM handle
func (cm *ConnectionManager) DB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary database/sql handle
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.sqlDB
}

// Pool returns the pgx pool used for readiness probes
func (cm *ConnectionManager) Pool() *pgxpool.Pool {
	return cm.pool
}

// Ping checks the primary through the pgx pool
func (cm *ConnectionManager) Ping(ctx context.Context) error {
	if err := cm.pool.Ping(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Stats reports pool statistics from database/sql
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.sqlDB.Stats()
}

// Close closes the probe pool and the primary connection
func (cm *ConnectionManager) Close() error {
	if cm.pool != nil {
		cm.pool.Close()
	}
	if err := cm.sqlDB.Close(); err != nil {
		cm.logger.Error("Failed to close primary database", zap.Error(err))
		return err
	}
	return nil
}
