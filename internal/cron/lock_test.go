package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockExcludesSecondOwner(t *testing.T) {
	store := newMemoryStore()
	first, err := NewRedisLock(store, "storefront:lock:cron", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "storefront:lock:cron", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["storefront:lock:cron"])

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "storefront:lock:cron", "non-owner must not release")

	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.values, "storefront:lock:cron")
}

func TestRedisLockDoesNotDeleteTakenOverKey(t *testing.T) {
	store := newMemoryStore()
	lock, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry followed by another replica taking the lock
	store.values["cron"] = "other-replica"

	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "other-replica", store.values["cron"])
}

func TestRedisLockErrors(t *testing.T) {
	_, err := NewRedisLock(nil, "cron", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemoryStore(), "", time.Minute)
	assert.Error(t, err)

	store := newMemoryStore()
	store.setErr = errors.New("connection refused")
	lock, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, lock.Release(context.Background()), "release without ownership is a no-op")
}
