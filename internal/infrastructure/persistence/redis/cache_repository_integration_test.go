//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func startRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port("6379/tcp"))
	require.NoError(t, err)

	return config.RedisConfig{
		Enabled:      true,
		Host:         host,
		Port:         port.Int(),
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

func TestCacheRepository_Redis(t *testing.T) {
	ctx := context.Background()
	cfg := startRedis(t)
	log := zaptest.NewLogger(t)

	client, err := NewClient(ctx, cfg, log)
	require.NoError(t, err)
	defer client.Close()

	repo := NewCacheRepository(client, "nourish:test:", log)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "food:apple", []byte(`[{"name":"Apple"}]`), time.Minute))
	value, err := repo.Get(ctx, "food:apple")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Apple"}]`, string(value))

	raw, err := client.Get(ctx, "nourish:test:food:apple").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	exists, err := repo.Exists(ctx, "food:apple")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "food:apple"))
	exists, err = repo.Exists(ctx, "food:apple")
	require.NoError(t, err)
	assert.False(t, exists)

	for want := int64(1); want <= 3; want++ {
		n, err := repo.Increment(ctx, "rl:ip:127.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	ttl, err := client.PTTL(ctx, "nourish:test:rl:ip:127.0.0.1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
