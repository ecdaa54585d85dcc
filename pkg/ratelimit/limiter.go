package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key, such as a client IP or an
// admin subject.
type KeyedLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perMinute requests per key with bursts of the same
// size. Buckets unused for idle are dropped by Sweep.
func NewKeyedLimiter(perMinute int, idle time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limit:   rate.Limit(perMinute) / 60,
		burst:   perMinute,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Allow takes one token from the bucket of key.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Burst is the bucket capacity.
func (l *KeyedLimiter) Burst() int {
	return l.burst
}

// Len returns the number of live buckets.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops buckets idle for longer than the idle timeout and returns
// how many were removed.
func (l *KeyedLimiter) Sweep() int {
	if l.idle <= 0 {
		return 0
	}
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
