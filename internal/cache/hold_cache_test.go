package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*HoldCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewHoldCache(rdb), mr
}

func TestKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "seat:lock:42", Key(42))

	id, ok := SeatIDFromKey("seat:lock:42")
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)

	_, ok = SeatIDFromKey("rl:holder:1")
	assert.False(t, ok)
	_, ok = SeatIDFromKey("seat:lock:abc")
	assert.False(t, ok)
}

func TestHoldInstallsRecordWithTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	replaced, err := c.Hold(ctx, 7, "user-1", 120*time.Second)
	require.NoError(t, err)
	assert.False(t, replaced)

	v, err := mr.Get("seat:lock:7")
	require.NoError(t, err)
	assert.Equal(t, "user-1", v)
	assert.Equal(t, 120*time.Second, mr.TTL("seat:lock:7"))

	left, ok, err := c.Remaining(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 120*time.Second, left)
}

func TestHoldRefreshesLeftoverRecord(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("seat:lock:7", "ghost"))
	mr.SetTTL("seat:lock:7", 5*time.Second)

	replaced, err := c.Hold(ctx, 7, "user-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, replaced)

	holder, err := mr.Get("seat:lock:7")
	require.NoError(t, err)
	assert.Equal(t, "user-2", holder)
	assert.Equal(t, time.Minute, mr.TTL("seat:lock:7"))
}

func TestRecordExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.Hold(ctx, 3, "user-1", 2*time.Second)
	require.NoError(t, err)

	ok, err := c.Exists(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(3 * time.Second)

	ok, err = c.Exists(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Remaining(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseDeletesAllKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for _, id := range []uint64{1, 2} {
		_, err := c.Hold(ctx, id, "user-1", time.Minute)
		require.NoError(t, err)
	}
	require.NoError(t, c.Release(ctx, 1, 2, 99))
	assert.False(t, mr.Exists("seat:lock:1"))
	assert.False(t, mr.Exists("seat:lock:2"))
}

func TestNilClientIsUnavailable(t *testing.T) {
	c := NewHoldCache(nil)
	ctx := context.Background()

	assert.False(t, c.Available())
	_, err := c.Hold(ctx, 1, "u", time.Second)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	_, err = c.Exists(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.ErrorIs(t, c.Release(ctx, 1), ErrCacheUnavailable)
	_, _, err = c.Remaining(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	_, err = c.SubscribeExpired(ctx)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

func TestSubscribeExpiredStreamsSeatKeysOnly(t *testing.T) {
	c, mr := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired, err := c.SubscribeExpired(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, mr.Publish("__keyevent@0__:expired", "rl:holder:user-1"))
	assert.Equal(t, 1, mr.Publish("__keyevent@0__:expired", "seat:lock:nope"))
	assert.Equal(t, 1, mr.Publish("__keyevent@0__:expired", "seat:lock:9"))

	select {
	case id := <-expired:
		assert.Equal(t, uint64(9), id)
	case <-time.After(2 * time.Second):
		t.Fatal("no expiry delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-expired:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
