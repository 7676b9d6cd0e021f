package httpapi

import (
	"sync"
	"time"
)

// ipLimiter throttles unauthenticated auth endpoints per client IP. It is a
// process-local sliding window; the durable per-address limit lives in the
// token stores.
type ipLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

func newIPLimiter() *ipLimiter {
	return &ipLimiter{
		window:  5 * time.Minute,
		max:     30,
		entries: make(map[string][]time.Time),
	}
}

func (l *ipLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	ts := l.entries[key]

	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ts = kept
	if len(ts) >= l.max {
		l.entries[key] = ts
		return false
	}

	ts = append(ts, now)
	l.entries[key] = ts
	return true
}
