package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *time.Time) {
	l := NewRateLimiter(limit, window)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("room", "alice"), "request %d should be within budget", i+1)
	}
	assert.False(t, l.Allow("room", "alice"), "sixth request must be rejected")
}

func TestRateLimiter_WindowResets(t *testing.T) {
	l, now := newTestLimiter(2, time.Second)

	assert.True(t, l.Allow("room", "alice"))
	assert.True(t, l.Allow("room", "alice"))
	assert.False(t, l.Allow("room", "alice"))

	*now = now.Add(time.Second)
	assert.True(t, l.Allow("room", "alice"), "a new window grants a fresh budget")
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("room", "alice"))
	}
	assert.False(t, l.Allow("room", "alice"))

	// Exhausting alice must not consume bob's budget, nor alice's in another
	// room.
	assert.True(t, l.Allow("room", "bob"))
	assert.True(t, l.Allow("other-room", "alice"))
}

func TestRateLimiter_Prune(t *testing.T) {
	l, now := newTestLimiter(5, time.Second)

	l.Allow("room", "alice")
	l.Allow("room", "bob")
	assert.Equal(t, 0, l.Prune(), "live windows must not be pruned")

	*now = now.Add(2 * time.Second)
	assert.Equal(t, 2, l.Prune())
	assert.Equal(t, 0, len(l.buckets))
}
