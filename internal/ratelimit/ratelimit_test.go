package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestWindow(perMinute int, minDelay time.Duration) (*Window, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	w := NewWindow(perMinute, minDelay)
	w.now = clock.Now
	w.sleep = clock.Sleep
	return w, clock
}

func TestWindow_EnforcesMinDelay(t *testing.T) {
	w, clock := newTestWindow(60, 500*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, w.Wait(ctx))
	assert.Empty(t, clock.slept, "first request never waits")

	clock.now = clock.now.Add(200 * time.Millisecond)
	require.NoError(t, w.Wait(ctx))
	assert.Equal(t, []time.Duration{300 * time.Millisecond}, clock.slept)

	clock.now = clock.now.Add(time.Second)
	require.NoError(t, w.Wait(ctx))
	assert.Len(t, clock.slept, 1)
}

func TestWindow_BlocksUntilWindowResets(t *testing.T) {
	w, clock := newTestWindow(2, 0)
	ctx := context.Background()
	start := clock.now

	require.NoError(t, w.Wait(ctx))
	clock.now = clock.now.Add(10 * time.Second)
	require.NoError(t, w.Wait(ctx))
	assert.Empty(t, clock.slept)

	clock.now = clock.now.Add(5 * time.Second)
	require.NoError(t, w.Wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 45*time.Second, clock.slept[0])
	assert.Equal(t, start.Add(time.Minute), clock.now)
	assert.Equal(t, 1, w.count)
}

func TestWindow_ContextCancelled(t *testing.T) {
	w := NewWindow(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, w.Wait(ctx))
	cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.Canceled)
}

func TestRegistry_SharesLimiterPerAccount(t *testing.T) {
	built := 0
	reg := NewRegistry(func(key string, perMinute int, minDelay time.Duration) Limiter {
		built++
		return NewWindow(perMinute, minDelay)
	})

	a := reg.For("ebay", "default", 120, time.Millisecond)
	b := reg.For("ebay", "", 10, time.Second)
	c := reg.For("ebay", "shop2", 120, time.Millisecond)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, built)
}

func TestRedis_SharesQuota(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())

	key := "test:" + uuid.NewString()
	first := NewRedis(rdb, key, 100, 200*time.Millisecond)
	second := NewRedis(rdb, key, 100, 200*time.Millisecond)

	require.NoError(t, first.Wait(ctx))
	start := time.Now()
	require.NoError(t, second.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
