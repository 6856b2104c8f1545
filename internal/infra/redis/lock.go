package redis

import (
	"context"
	"errors"
	"time"

	"popup-shop/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ adapter.Locker = (*RedisLocker)(nil)

// ErrLockHeld is returned when the lock stayed taken through every attempt.
var ErrLockHeld = errors.New("lock held by another owner")

// RedisLocker is a single-instance SET NX lock. TryLock polls with a
// doubling wait until attempts run out.
type RedisLocker struct {
	c        *Client
	attempts int
	wait     time.Duration
}

type LockerOption func(*RedisLocker)

// WithRetry sets how often TryLock polls and the first wait between polls.
func WithRetry(attempts int, wait time.Duration) LockerOption {
	return func(l *RedisLocker) {
		if attempts > 0 {
			l.attempts = attempts
		}
		if wait > 0 {
			l.wait = wait
		}
	}
}

func NewLocker(c *Client, opts ...LockerOption) *RedisLocker {
	l := &RedisLocker{c: c, attempts: 5, wait: 25 * time.Millisecond}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	k := l.c.key("lock", key)
	wait := l.wait
	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := l.c.cli.SetNX(ctx, k, token, ttl).Result()
		switch {
		case err != nil:
			lastErr = err
		case ok:
			return token, nil
		}
		if attempt >= l.attempts {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrLockHeld
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Unlock releases the lock only if token still owns it.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.c.cli, []string{l.c.key("lock", key)}, token).Result()
	return err
}
