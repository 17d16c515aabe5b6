package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(cfg Config) (*RateLimiter, *time.Time) {
	rl := New(cfg)
	rl.Stop()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }
	return rl, &current
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl, clock := newTestLimiter(Config{
		MaxRequestsPerInterval: 3,
		Interval:               time.Second,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.ShouldAllowRequest("client-a"), "request %d should be admitted", i+1)
	}

	assert.False(t, rl.ShouldAllowRequest("client-a"), "4th request within window should be rejected")

	*clock = clock.Add(1100 * time.Millisecond)

	assert.True(t, rl.ShouldAllowRequest("client-a"), "request after window should be admitted again")
}

func TestRateLimiter_FailOpen(t *testing.T) {
	rl, _ := newTestLimiter(Config{
		MaxRequestsPerInterval: 1,
		Interval:               time.Second,
		AllowAllRequests:       true,
	})

	require.True(t, rl.ShouldAllowRequest("client-a"))
	assert.True(t, rl.ShouldAllowRequest("client-a"), "over-capacity request should fail open")
	assert.Equal(t, 0, rl.GetRemainingRequests("client-a"))
}

func TestRateLimiter_SamplingPreFilter(t *testing.T) {
	rl, _ := newTestLimiter(Config{
		MaxRequestsPerInterval: 100,
		Interval:               time.Minute,
		SamplingRate:           5,
	})

	admitted := 0
	for i := 0; i < 20; i++ {
		if rl.ShouldAllowRequest("client-a") {
			admitted++
		}
	}

	assert.Equal(t, 4, admitted, "exactly 1 in 5 calls should reach window accounting")
	assert.Equal(t, 96, rl.GetRemainingRequests("client-a"), "sampled-out calls must not count against the window")
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(Config{
		MaxRequestsPerInterval: 1,
		Interval:               time.Second,
	})

	assert.True(t, rl.ShouldAllowRequest("client-a"))
	assert.False(t, rl.ShouldAllowRequest("client-a"))
	assert.True(t, rl.ShouldAllowRequest("client-b"), "other keys keep their own window")
}

func TestRateLimiter_RemainingRequests(t *testing.T) {
	rl, clock := newTestLimiter(Config{
		MaxRequestsPerInterval: 3,
		Interval:               time.Second,
	})

	assert.Equal(t, 3, rl.GetRemainingRequests("client-a"), "untracked key has full capacity")

	rl.ShouldAllowRequest("client-a")
	rl.ShouldAllowRequest("client-a")
	assert.Equal(t, 1, rl.GetRemainingRequests("client-a"))

	*clock = clock.Add(2 * time.Second)
	assert.Equal(t, 3, rl.GetRemainingRequests("client-a"), "capacity recovers after window")
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestLimiter(Config{
		MaxRequestsPerInterval: 1,
		Interval:               time.Minute,
	})

	require.True(t, rl.ShouldAllowRequest("client-a"))
	require.False(t, rl.ShouldAllowRequest("client-a"))

	rl.Reset("client-a")
	assert.True(t, rl.ShouldAllowRequest("client-a"))

	rl.ResetAll()
	assert.True(t, rl.ShouldAllowRequest("client-a"))
}

func TestRateLimiter_StaleKeySweep(t *testing.T) {
	rl, clock := newTestLimiter(Config{
		MaxRequestsPerInterval: 3,
		Interval:               time.Second,
	})

	rl.ShouldAllowRequest("one-off")
	rl.ShouldAllowRequest("active")

	*clock = clock.Add(3 * time.Second)
	rl.ShouldAllowRequest("active")

	rl.removeStaleKeys()

	rl.mu.Lock()
	_, oneOffTracked := rl.entries["one-off"]
	_, activeTracked := rl.entries["active"]
	rl.mu.Unlock()

	assert.False(t, oneOffTracked, "keys idle beyond twice the interval should be swept")
	assert.True(t, activeTracked)
}
