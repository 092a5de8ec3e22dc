// Package redis provides Redis-backed implementations of the cache port
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient connects to Redis and verifies the connection with PING
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (goredis.UniversalClient, error) {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:           []string{cfg.Address()},
		Password:        cfg.Password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address(), err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", cfg.Address()),
		zap.Int("db", cfg.Database),
		zap.Int("pool_size", cfg.PoolSize),
	)
	return client, nil
}
