package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowAdmitsUpToMax(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(60, time.Minute)

	for i := 0; i < 60; i++ {
		assert.True(t, w.Admit(now.Add(time.Duration(i)*100*time.Millisecond)), "request %d should pass", i+1)
	}
	assert.False(t, w.Admit(now.Add(6*time.Second)), "61st request inside the window must be denied")
}

func TestWindowSlidesForward(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(3, time.Minute)

	assert.True(t, w.Admit(now))
	assert.True(t, w.Admit(now.Add(10*time.Second)))
	assert.True(t, w.Admit(now.Add(20*time.Second)))
	assert.False(t, w.Admit(now.Add(30*time.Second)))

	// 61s after the first admit, it has slid out and one slot is free again.
	assert.True(t, w.Admit(now.Add(61*time.Second)))
	assert.False(t, w.Admit(now.Add(62*time.Second)))
}

func TestWindowDenialsAreNotRecorded(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(1, time.Minute)

	assert.True(t, w.Admit(now))
	for i := 1; i <= 10; i++ {
		assert.False(t, w.Admit(now.Add(time.Duration(i)*time.Second)))
	}
	// Denied attempts must not extend the lockout past the single admit.
	assert.True(t, w.Admit(now.Add(61*time.Second)))
}

func TestWindowRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWindow(5, time.Minute)

	assert.Equal(t, 5, w.Remaining(now))
	w.Admit(now)
	w.Admit(now)
	assert.Equal(t, 3, w.Remaining(now))
	assert.Equal(t, 5, w.Remaining(now.Add(2*time.Minute)))
}
