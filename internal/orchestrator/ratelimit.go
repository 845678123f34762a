package orchestrator

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window counter per client identifier. Like the
// idempotency cache it is process-local and best-effort only.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
}

// NewRateLimiter allows max requests per client within the window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records one request for the client and reports whether it fits the
// window.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[client][:0]
	for _, ts := range l.hits[client] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[client] = kept
		return false
	}
	l.hits[client] = append(kept, now)
	return true
}
