package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGetSetDelete(t *testing.T) {
	c := NewMockRedisClient("test:")
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	val, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	require.NoError(t, c.Delete(ctx, "a", "missing"))
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMockExpiry(t *testing.T) {
	c := NewMockRedisClient("test:")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMockClear(t *testing.T) {
	c := NewMockRedisClient("test:")
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "article:b", []byte("2"), 0))

	require.NoError(t, c.Clear(ctx, "article:"))
	_, ok, _ := c.Get(ctx, "article:b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestMockLockExcludes(t *testing.T) {
	c := NewMockRedisClient("test:")
	ctx := context.Background()

	lock, err := c.Lock(ctx, "slug", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = c.Lock(waitCtx, "slug", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	again, err := c.Lock(ctx, "slug", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMockLockSerializes(t *testing.T) {
	c := NewMockRedisClient("test:")
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := c.Lock(ctx, "slug", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, lock.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMockLockExpires(t *testing.T) {
	c := NewMockRedisClient("test:")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	c.now = func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	ctx := context.Background()

	stale, err := c.Lock(ctx, "slug", time.Second)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()

	fresh, err := c.Lock(ctx, "slug", time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, stale.Release(ctx), ErrLockNotHeld)
	assert.NoError(t, fresh.Release(ctx))
}
