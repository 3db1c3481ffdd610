package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string](5*time.Minute, clock.Now)

	c.Set("a", "value")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok, "entry must live until the TTL elapses")

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must expire exactly at TTL")
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_GetOrLoad(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTLCache[int](time.Minute, clock.Now)

	var calls int32
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	t.Run("Промах, затем попадание", func(t *testing.T) {
		v, hit, err := c.GetOrLoad(ctx, "k", load)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 42, v)

		v, hit, err = c.GetOrLoad(ctx, "k", load)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, 42, v)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Ошибки не кэшируются", func(t *testing.T) {
		boom := errors.New("boom")
		_, _, err := c.GetOrLoad(ctx, "bad", func(context.Context) (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
		_, ok := c.Get("bad")
		assert.False(t, ok)
	})

	t.Run("Evict заставляет перечитать значение", func(t *testing.T) {
		c.Evict("k")
		_, hit, err := c.GetOrLoad(ctx, "k", load)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestTTLCache_EvictDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[string](time.Minute, nil)

	v, _, err := c.GetOrLoad(ctx, "k", func(context.Context) (string, error) {
		c.Evict("k")
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_ConcurrentMissesShareLoad(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[string](time.Minute, nil)

	release := make(chan struct{})
	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrLoad(ctx, "k", func(context.Context) (string, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "v", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestTTLCache_EvictLeavesNoBookkeeping(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache[string](time.Minute, nil)

	for i := 0; i < 100; i++ {
		_, _, err := c.GetOrLoad(ctx, "k", func(context.Context) (string, error) {
			return "v", nil
		})
		require.NoError(t, err)
		c.Evict("k")
		c.Evict("never-loaded")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.pending)
	assert.Empty(t, c.entries)
}

func TestTTLCache_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	c := NewTTLCache[string](time.Minute, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "v", nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrLoad(firstCtx, "k", load)
		firstErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	second := make(chan string, 1)
	go func() {
		v, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
			return "", errors.New("second load must not run while the first is in flight")
		})
		assert.NoError(t, err)
		second <- v
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	assert.Equal(t, "v", <-second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
