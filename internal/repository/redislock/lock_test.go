package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "alive:test:lock"

func setup(t *testing.T) (*SweepLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewClient(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return NewSweepLock(rc, testKey, time.Minute, zap.NewNop()), mr
}

func TestSweepLock_SecondAcquireDenied(t *testing.T) {
	ctx := context.Background()
	l, mr := setup(t)

	unlock, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(testKey))

	_, ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	unlock(ctx)
	assert.False(t, mr.Exists(testKey))

	unlock2, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	unlock2(ctx)
}

func TestSweepLock_UnlockLeavesForeignToken(t *testing.T) {
	ctx := context.Background()
	l, mr := setup(t)

	unlock, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the lease expired and another replica took the lock
	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(testKey))
	require.NoError(t, mr.Set(testKey, "other-replica"))

	unlock(ctx)
	got, err := mr.Get(testKey)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", got)
}

func TestSweepLock_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	l, mr := setup(t)

	_, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	_, ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweepLock_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rc.Close() })
	l := NewSweepLock(rc, testKey, time.Minute, nil)
	mr.Close()

	_, ok, err := l.TryLock(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Config{Addr: addr})
	require.Error(t, err)
}
