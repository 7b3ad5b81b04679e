//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/lock"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

func setupRedisContainer(t *testing.T) *redis.Client {
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

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker_Integration(t *testing.T) {
	client := setupRedisContainer(t)
	locker := lock.NewRedisLocker(client, time.Second)
	ctx := context.Background()

	t.Run("second holder waits until release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "1001")
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			release, err := locker.Lock(ctx, "1001")
			if err == nil {
				release()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(100 * time.Millisecond):
		}
		unlock()
		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("lock not acquired after release")
		}
	})

	t.Run("times out with lock not acquired", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "1002")
		require.NoError(t, err)
		defer unlock()

		waitCtx, cancel := context.WithTimeout(ctx, 80*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "1002")
		require.ErrorIs(t, err, ports.ErrLockNotAcquired)
	})

	t.Run("lease expires for a crashed holder", func(t *testing.T) {
		_, err := locker.Lock(ctx, "1003")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		unlock, err := locker.Lock(waitCtx, "1003")
		require.NoError(t, err)
		unlock()
	})

	t.Run("stale release does not drop a newer holder", func(t *testing.T) {
		staleUnlock, err := locker.Lock(ctx, "1004")
		require.NoError(t, err)
		require.NoError(t, client.Del(ctx, "orders:lock:1004").Err())

		unlock, err := locker.Lock(ctx, "1004")
		require.NoError(t, err)
		defer unlock()
		staleUnlock()

		exists, err := client.Exists(ctx, "orders:lock:1004").Result()
		require.NoError(t, err)
		require.Equal(t, int64(1), exists)
	})
}
