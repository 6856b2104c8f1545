package adapter

import (
	"context"
	"time"
)

// Locker is a best-effort mutual exclusion primitive keyed by name.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
