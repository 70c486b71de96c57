package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)

	release, err := NewLock(client, "recompute", time.Minute).Acquire(ctx)
	require.NoError(t, err)

	_, err = NewLock(client, "recompute", time.Minute).Acquire(ctx)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release()
	assert.False(t, mr.Exists("recompute"))

	release, err = NewLock(client, "recompute", time.Minute).Acquire(ctx)
	require.NoError(t, err)
	release()
}

func TestLockExtendsWhileHeld(t *testing.T) {
	mr, client := newTestRedis(t)
	ttl := 300 * time.Millisecond

	release, err := NewLock(client, "recompute", ttl).Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("recompute") > 250*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond, "expiry pushed back")

	mr.FastForward(250 * time.Millisecond)
	assert.True(t, mr.Exists("recompute"), "a run longer than ttl keeps the lock")
}

func TestLockReleaseLeavesNewHolderAlone(t *testing.T) {
	mr, client := newTestRedis(t)

	release, err := NewLock(client, "recompute", 300*time.Millisecond).Acquire(context.Background())
	require.NoError(t, err)

	mr.Del("recompute")
	require.NoError(t, mr.Set("recompute", "other-holder"))
	time.Sleep(150 * time.Millisecond)
	release()

	got, err := mr.Get("recompute")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}
