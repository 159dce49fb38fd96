package ratelimit

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterEnforcesPerKeyBudget(t *testing.T) {
	system := actor.NewActorSystem()
	limiter := NewLimiter(system, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := limiter.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "budget exhausted for this key")
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	system := actor.NewActorSystem()
	limiter := NewLimiter(system, 1, time.Minute)

	allowed, err := limiter.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "first key is out of budget")

	// A different key has its own fresh window.
	allowed, err = limiter.Allow("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

// An idle report that crosses paths with an in-flight request must not evict
// the key, or an admitted timestamp would be forgotten and the client could
// squeeze an extra request into the window.
func TestStaleIdleReportKeepsWindow(t *testing.T) {
	system := actor.NewActorSystem()
	limiter := NewLimiter(system, 2, time.Minute)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow("client")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	// A report claiming one handled request is stale: two were forwarded.
	system.Root.Send(limiter.pid, &keyIdleMsg{Key: "client", Handled: 1})

	allowed, err := limiter.Allow("client")
	require.NoError(t, err)
	assert.False(t, allowed, "stale report must not reset the window")
}

func TestMatchingIdleReportEvictsKey(t *testing.T) {
	system := actor.NewActorSystem()
	limiter := NewLimiter(system, 1, time.Minute)

	allowed, err := limiter.Allow("client")
	require.NoError(t, err)
	require.True(t, allowed)

	system.Root.Send(limiter.pid, &keyIdleMsg{Key: "client", Handled: 1})

	allowed, err = limiter.Allow("client")
	require.NoError(t, err)
	assert.True(t, allowed, "evicted key starts a fresh window")
}

func TestLimiterRecoversAfterWindow(t *testing.T) {
	system := actor.NewActorSystem()
	limiter := NewLimiter(system, 1, 150*time.Millisecond)

	allowed, err := limiter.Allow("client")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow("client")
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(200 * time.Millisecond)

	allowed, err = limiter.Allow("client")
	require.NoError(t, err)
	assert.True(t, allowed, "window has slid past the first admit")
}
