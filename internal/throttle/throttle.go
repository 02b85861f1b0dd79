// Package throttle caps how often codes may be requested for one identity.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
)

const keyPrefix = "licenseportal:otp-rate:"

// Limiter decides whether another request for key is allowed. It returns a
// RateLimited error when the caller is over its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Key builds the limiter key for a code purpose and an email address.
func Key(purpose, email string) string {
	return purpose + ":" + email
}

// counter is the subset of the redis client the limiter uses.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Decr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// noExpiry is the TTL redis reports for a key that exists without an expiry.
const noExpiry = time.Duration(-1)

// RedisLimiter is a fixed-window counter stored in redis.
type RedisLimiter struct {
	client counter
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, log *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, log: log}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	redisKey := keyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("increment rate counter: %w", err)
	}

	if count == 1 || l.missingExpiry(ctx, redisKey) {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("set rate counter expiry: %w", err)
		}
	}
	if count > int64(l.limit) {
		// keep the counter at the limit so rejected calls do not extend the penalty
		if err := l.client.Decr(ctx, redisKey).Err(); err != nil {
			l.log.Warn("rate counter decrement failed", zap.String("key", redisKey), zap.Error(err))
		}
		return apperr.RateLimited()
	}
	return nil
}

// missingExpiry reports whether an existing counter has lost its expiry, which
// happens when the Expire after the first increment failed.
func (l *RedisLimiter) missingExpiry(ctx context.Context, redisKey string) bool {
	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		l.log.Warn("rate counter ttl lookup failed", zap.String("key", redisKey), zap.Error(err))
		return false
	}
	return ttl == noExpiry
}

// Noop allows everything. It is used when redis is not configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) error { return nil }
