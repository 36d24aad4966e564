package collab

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window admission counter keyed by (room, user).
// Each key's budget is independent: exhausting one user's window never
// affects another user in the same room. Allow never blocks.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*windowCounter

	// now is swappable in tests.
	now func() time.Time
}

type windowCounter struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing limit events per window per
// (room, user) key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		panic("rate limit must be positive")
	}
	if window <= 0 {
		panic("rate limit window must be positive")
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowCounter),
		now:     time.Now,
	}
}

// Allow reports whether one more event fits into the current window for the
// (roomID, userID) key, counting it if so.
func (l *RateLimiter) Allow(roomID, userID string) bool {
	key := roomID + "/" + userID
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.buckets[key] = &windowCounter{start: now, count: 1}
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// Prune drops buckets whose window has expired. Called by the background
// sweep, never by the request path.
func (l *RateLimiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
