package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T, policy Policy) (*MemoryRateLimiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	limiter, err := NewMemoryRateLimiter(policy, WithClock(clock.Now))
	require.NoError(t, err)
	return limiter, clock
}

func TestNewMemoryRateLimiter_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero window", Policy{Window: 0, MaxRequests: 1, MaxSize: 1}},
		{"zero max requests", Policy{Window: time.Second, MaxRequests: 0, MaxSize: 1}},
		{"negative max requests", Policy{Window: time.Second, MaxRequests: -3, MaxSize: 1}},
		{"zero max size", Policy{Window: time.Second, MaxRequests: 1, MaxSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemoryRateLimiter(tt.policy)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestMemoryRateLimiter_WindowAdmission(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 3, MaxSize: 100})
	ctx := context.Background()

	var allowed []bool
	var remaining []int
	for i := 0; i < 4; i++ {
		res, err := limiter.CheckLimit(ctx, "ip1")
		require.NoError(t, err)
		allowed = append(allowed, res.Allowed)
		remaining = append(remaining, res.Remaining)
		assert.Equal(t, 3, res.Limit)
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, []bool{true, true, true, false}, allowed)
	assert.Equal(t, []int{2, 1, 0, 0}, remaining)
}

func TestMemoryRateLimiter_DeniedKeepsResetTime(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 1, MaxSize: 100})
	ctx := context.Background()

	first, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Second), first.ResetTime)

	clock.Advance(500 * time.Millisecond)
	denied, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, first.ResetTime, denied.ResetTime)
}

func TestMemoryRateLimiter_WindowReset(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 3, MaxSize: 100})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := limiter.CheckLimit(ctx, "ip1")
		require.NoError(t, err)
	}

	// The window is half-open: at exactly windowStart+window the entry has expired.
	clock.Advance(time.Second)

	res, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, clock.Now().Add(time.Second), res.ResetTime)
}

func TestMemoryRateLimiter_LastMillisecondStillCounts(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 1, MaxSize: 100})
	ctx := context.Background()

	_, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)

	clock.Advance(time.Second - time.Millisecond)
	res, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryRateLimiter_KeyIsolation(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Window: time.Minute, MaxRequests: 2, MaxSize: 100})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.CheckLimit(ctx, "ip1")
		require.NoError(t, err)
	}

	res, err := limiter.CheckLimit(ctx, "ip2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestMemoryRateLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Window: time.Minute, MaxRequests: 1, MaxSize: 100})
	ctx := context.Background()

	_, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	res, err := limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, limiter.Reset(ctx, "ip1"))
	assert.Equal(t, 0, limiter.Len())

	res, err = limiter.CheckLimit(ctx, "ip1")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "should be allowed after reset")

	assert.NoError(t, limiter.Reset(ctx, "never-seen"))
}

func TestMemoryRateLimiter_EvictionBound(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Hour, MaxRequests: 10, MaxSize: 3})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := limiter.CheckLimit(ctx, fmt.Sprintf("ip%d", i))
		require.NoError(t, err)
		clock.Advance(time.Millisecond)

		stats, err := limiter.Stats(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, stats.StoreSize, 3)
	}

	stats, err := limiter.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.StoreSize)
	assert.Equal(t, uint64(7), stats.Evictions)

	keys := make([]string, 0, len(stats.TopKeys))
	for _, kc := range stats.TopKeys {
		keys = append(keys, kc.Key)
	}
	assert.ElementsMatch(t, []string{"ip7", "ip8", "ip9"}, keys)
}

func TestMemoryRateLimiter_EvictsOldestWindowStart(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 10, MaxSize: 3})
	ctx := context.Background()

	check := func(key string) {
		t.Helper()
		_, err := limiter.CheckLimit(ctx, key)
		require.NoError(t, err)
		clock.Advance(100 * time.Millisecond)
	}

	check("a") // window starts t=0
	check("b") // t=100ms
	check("c") // t=200ms
	check("a") // same window, no reordering: a is still the oldest

	check("d") // full: evicts a

	stats, err := limiter.Stats(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, keysOf(stats))

	// Let b's window lapse, then restart it: b becomes the newest window.
	clock.Advance(time.Second)
	check("b")
	check("e") // full: evicts c, the oldest remaining window start

	stats, err = limiter.Stats(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "d", "e"}, keysOf(stats))
}

func TestMemoryRateLimiter_Sweep(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Window: time.Second, MaxRequests: 5, MaxSize: 100})
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := limiter.CheckLimit(ctx, key)
		require.NoError(t, err)
		clock.Advance(300 * time.Millisecond)
	}
	// now = 900ms: nothing expired yet
	removed, err := limiter.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// now = 1300ms: a (reset 1000ms) and b (reset 1300ms, boundary) expired
	clock.Advance(400 * time.Millisecond)
	removed, err = limiter.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, limiter.Len())

	clock.Advance(time.Hour)
	removed, err = limiter.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, limiter.Len())
}

func TestMemoryRateLimiter_Stats(t *testing.T) {
	limiter, clock := newTestLimiter(t, Policy{Name: "api", Window: time.Minute, MaxRequests: 100, MaxSize: 50})
	ctx := context.Background()

	empty, err := limiter.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.StoreSize)
	assert.Nil(t, empty.OldestExpiry)
	assert.Nil(t, empty.NewestExpiry)
	assert.Empty(t, empty.TopKeys)

	start := clock.Now()
	hits := map[string]int{"10.0.0.1": 5, "10.0.0.2": 1, "10.0.0.3": 3}
	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		for i := 0; i < hits[key]; i++ {
			_, err := limiter.CheckLimit(ctx, key)
			require.NoError(t, err)
		}
		clock.Advance(time.Second)
	}

	stats, err := limiter.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "api", stats.Policy)
	assert.Equal(t, 3, stats.StoreSize)
	assert.Equal(t, 50, stats.MaxSize)
	assert.Greater(t, stats.MemoryUsage, int64(0))
	require.NotNil(t, stats.OldestExpiry)
	require.NotNil(t, stats.NewestExpiry)
	assert.Equal(t, start.Add(time.Minute), *stats.OldestExpiry)
	assert.Equal(t, start.Add(2*time.Second+time.Minute), *stats.NewestExpiry)
	assert.Equal(t, []KeyCount{
		{Key: "10.0.0.1", Count: 5},
		{Key: "10.0.0.3", Count: 3},
		{Key: "10.0.0.2", Count: 1},
	}, stats.TopKeys)

	// Stats is read-only.
	assert.Equal(t, 3, limiter.Len())
}

func TestMemoryRateLimiter_TopKeysCapped(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Window: time.Minute, MaxRequests: 100, MaxSize: 100})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := limiter.CheckLimit(ctx, fmt.Sprintf("key-%02d", i))
		require.NoError(t, err)
	}

	stats, err := limiter.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, stats.StoreSize)
	assert.Len(t, stats.TopKeys, topKeysLimit)
}

func TestMemoryRateLimiter_ConcurrentCheckLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, Policy{Window: time.Minute, MaxRequests: 50, MaxSize: 100})
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.CheckLimit(ctx, "shared")
			if err == nil && res.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), admitted.Load())
}

func keysOf(stats *Stats) []string {
	keys := make([]string, 0, len(stats.TopKeys))
	for _, kc := range stats.TopKeys {
		keys = append(keys, kc.Key)
	}
	return keys
}
