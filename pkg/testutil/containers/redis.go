//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer is a Redis instance for the history cache suites.
type RedisContainer struct {
	Container testcontainers.Container
	Client    *redis.Client
}

// NewRedisContainer starts Redis and returns a connected client. The Manager
// shares it across suites; Ryuk removes it when the test binary exits.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	fail := func(step string, err error) {
		_ = container.Terminate(ctx)
		t.Fatalf("%s: %v", step, err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		fail("redis connection string", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		fail("parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		fail("ping redis", err)
	}
	return &RedisContainer{Container: container, Client: client}
}

// FlushAll clears the instance between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
