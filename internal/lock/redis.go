package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/Veraticus/moneyplanner/internal/service"
)

// Redis lock defaults.
const (
	DefaultTTL          = 30 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
	keyPrefix           = "planner:lock:"
)

// releaseScript deletes the lock only if it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

var _ service.Locker = (*RedisLocker)(nil)

// redisClient is the subset of the go-redis API the locker uses.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a token lock held in Redis. A lock expires after TTL even
// if its holder never releases it.
type RedisLocker struct {
	client       redisClient
	logger       *slog.Logger
	TTL          time.Duration
	PollInterval time.Duration
}

// NewRedisClient connects to Redis with the given settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisLocker creates a locker on client.
func NewRedisLocker(client redisClient) *RedisLocker {
	return &RedisLocker{
		client:       client,
		TTL:          DefaultTTL,
		PollInterval: DefaultPollInterval,
		logger:       slog.Default().With("component", "lock"),
	}
}

// Lock polls until the lock is acquired or ctx is done.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release must outlive a canceled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			r.logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}, nil
}
