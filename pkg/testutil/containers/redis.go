//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"memoflow/internal/platform/config"
)

// RedisContainer backs the notification inbox and calendar-sync stream tests.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	admin     *redis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to parse redis url %q: %v", url, err)
	}
	admin := redis.NewClient(opts)
	if err := admin.Ping(ctx).Err(); err != nil {
		_ = admin.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping redis: %v", err)
	}

	// Shared across suites by the Manager; Ryuk reaps the container.
	return &RedisContainer{Container: container, URL: url, admin: admin}
}

// Config returns the connection settings platformredis.New expects.
func (r *RedisContainer) Config() config.RedisConfig {
	return config.RedisConfig{URL: r.URL, PoolSize: 4}
}

// Reset drops every inbox, index and stream left by an earlier test.
func (r *RedisContainer) Reset(ctx context.Context) error {
	return r.admin.FlushAll(ctx).Err()
}
