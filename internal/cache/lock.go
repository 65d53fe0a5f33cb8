package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
)

// ErrLocked means another holder owns the key and did not release it in time.
var ErrLocked = errors.New("resource is locked")

// Locker takes short-lived named locks. The returned release func is always
// safe to call.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(context.Context), err error)
}

type NoopLocker struct{}

func (NoopLocker) Obtain(_ context.Context, _ string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(client), ttl: ttl}
}

// Obtain retries for up to about one second before giving up with ErrLocked.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(context.Context), error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return func(context.Context) {}, ErrLocked
	}
	if err != nil {
		return func(context.Context) {}, err
	}
	return func(ctx context.Context) {
		_ = lock.Release(ctx)
	}, nil
}
