package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultLeaseTTL   = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	keyPrefix         = "orders:lock:"
)

var _ ports.Locker = (*RedisLocker)(nil)

// RedisLocker is a per-order lock shared by every API replica. The lease
// expires after ttl so a crashed holder cannot block an order forever.
type RedisLocker struct {
	client redis.UniversalClient
	script *redis.Script
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker builds the locker. A non-positive ttl selects the default lease.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(releaseScript),
		ttl:    ttl,
		retry:  defaultRetryDelay,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	redisKey := keyPrefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = l.script.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ports.ErrLockNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
