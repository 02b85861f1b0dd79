package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
)

type fakeCounter struct {
	counts    map[string]int64
	expires   map[string]time.Duration
	incrErr   error
	expireErr error
	decrErr   error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Decr(_ context.Context, key string) *redis.IntCmd {
	if f.decrErr != nil {
		return redis.NewIntResult(0, f.decrErr)
	}
	f.counts[key]--
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(_ context.Context, key string) *redis.DurationCmd {
	if _, ok := f.counts[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	if d, ok := f.expires[key]; ok {
		return redis.NewDurationResult(d, nil)
	}
	return redis.NewDurationResult(noExpiry, nil)
}

func newLimiter(fc *fakeCounter, limit int) *RedisLimiter {
	return &RedisLimiter{client: fc, limit: limit, window: time.Hour, log: zap.NewNop()}
}

func TestRedisLimiterBlocksOverLimit(t *testing.T) {
	fc := newFakeCounter()
	l := newLimiter(fc, 3)
	key := Key("email_verification", "jane@example.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow(context.Background(), key))
	}
	err := l.Allow(context.Background(), key)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))

	assert.Equal(t, int64(3), fc.counts[keyPrefix+key])
	assert.Equal(t, time.Hour, fc.expires[keyPrefix+key])
}

func TestRedisLimiterKeysAreIndependent(t *testing.T) {
	l := newLimiter(newFakeCounter(), 1)

	require.NoError(t, l.Allow(context.Background(), Key("password_reset", "a@example.com")))
	require.NoError(t, l.Allow(context.Background(), Key("password_reset", "b@example.com")))
	require.NoError(t, l.Allow(context.Background(), Key("email_verification", "a@example.com")))
	assert.Error(t, l.Allow(context.Background(), Key("password_reset", "a@example.com")))
}

func TestRedisLimiterSurfacesRedisErrors(t *testing.T) {
	fc := newFakeCounter()
	fc.incrErr = errors.New("connection refused")
	l := newLimiter(fc, 1)

	err := l.Allow(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestRedisLimiterRestoresLostExpiry(t *testing.T) {
	fc := newFakeCounter()
	l := newLimiter(fc, 3)
	key := Key("email_verification", "jane@example.com")
	redisKey := keyPrefix + key

	fc.expireErr = errors.New("timeout")
	require.Error(t, l.Allow(context.Background(), key))
	assert.NotContains(t, fc.expires, redisKey)

	fc.expireErr = nil
	require.NoError(t, l.Allow(context.Background(), key))
	assert.Equal(t, time.Hour, fc.expires[redisKey])
}

func TestRedisLimiterBlocksWhenDecrementFails(t *testing.T) {
	fc := newFakeCounter()
	l := newLimiter(fc, 1)
	key := Key("password_reset", "jane@example.com")

	require.NoError(t, l.Allow(context.Background(), key))
	fc.decrErr = errors.New("connection reset")
	err := l.Allow(context.Background(), key)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

func TestNoopAllows(t *testing.T) {
	assert.NoError(t, Noop{}.Allow(context.Background(), "anything"))
}
