package cache

import (
	"context"
	"errors"
	"time"
)

// lockRetryInterval is how often a blocked Lock call re-attempts acquisition.
const lockRetryInterval = 20 * time.Millisecond

// ErrLockNotHeld is returned by Release when the lock expired or was taken over.
var ErrLockNotHeld = errors.New("lock not held")

// Cache is the key/value store used for read caching and short-lived locks.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Lock blocks until key is acquired or ctx is done. The lock expires
	// after ttl even if never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	// Clear removes every key starting with pattern under the client prefix.
	Clear(ctx context.Context, pattern string) error
	Close() error
}

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

func waitRetry(ctx context.Context) error {
	t := time.NewTimer(lockRetryInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
