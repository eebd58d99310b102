package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MockRedisClient provides an in-process implementation for tests and for
// single-instance deployments without Redis.
type MockRedisClient struct {
	mu     sync.Mutex
	data   map[string]entry
	prefix string
	now    func() time.Time
}

func NewMockRedisClient(prefix string) *MockRedisClient {
	return &MockRedisClient{
		data:   make(map[string]entry),
		prefix: prefix,
		now:    time.Now,
	}
}

// SetClock overrides time.Now for expiry checks.
func (m *MockRedisClient) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockRedisClient) Close() error {
	return nil
}

// lookup returns a live entry, evicting it if expired. Callers hold mu.
func (m *MockRedisClient) lookup(key string) (entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return entry{}, false
	}
	return e, true
}

func (m *MockRedisClient) store(key string, value []byte, ttl time.Duration) {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
}

func (m *MockRedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(m.prefix + key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(m.prefix+key, value, ttl)
	return nil
}

func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, m.prefix+k)
	}
	return nil
}

func (m *MockRedisClient) Lock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lockKey := m.prefix + "lock:" + key
	token := []byte(uuid.NewString())

	for {
		m.mu.Lock()
		if _, held := m.lookup(lockKey); !held {
			m.store(lockKey, token, ttl)
			m.mu.Unlock()
			return &mockLock{m: m, key: lockKey, token: string(token)}, nil
		}
		m.mu.Unlock()

		if err := waitRetry(ctx); err != nil {
			return nil, err
		}
	}
}

func (m *MockRedisClient) Clear(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.data {
		if strings.HasPrefix(k, m.prefix+pattern) {
			delete(m.data, k)
		}
	}
	return nil
}

type mockLock struct {
	m     *MockRedisClient
	key   string
	token string
}

func (l *mockLock) Release(ctx context.Context) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()

	e, ok := l.m.lookup(l.key)
	if !ok || string(e.value) != l.token {
		return ErrLockNotHeld
	}
	delete(l.m.data, l.key)
	return nil
}
