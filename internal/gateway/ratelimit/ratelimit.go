// Package ratelimit implements the per-principal sliding-window rate
// limiter: a trailing sixty-second window of request timestamps, pruned
// lazily on every access.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the trailing interval over which requests are counted.
const Window = time.Minute

// limitFunc returns the current per-minute cap. 0 means unlimited;
// non-zero values are expected to already be floored by the caller.
type limitFunc func() int

// Limiter tracks request timestamps per principal identifier. All
// windows share one mutex; pruning and counting are atomic with
// respect to concurrent records on the same principal.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   limitFunc
	now     func() time.Time
}

// New creates a limiter reading its cap through limit on every check,
// so configuration changes apply without a restart.
func New(limit func() int) *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		now:     time.Now,
	}
}

// Record appends the current timestamp for the principal and prunes
// expired entries. It never rejects; rejection is Check's job, called
// before the protected operation runs.
func (l *Limiter) Record(principalID string) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows[principalID] = prune(append(l.windows[principalID], now), now)
}

// Check reports whether the principal is within the configured limit.
// Entries older than the window are pruned before counting.
func (l *Limiter) Check(principalID string) bool {
	limit := l.limit()
	if limit == 0 {
		return true
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	recent, ok := l.windows[principalID]
	if !ok {
		return true
	}
	recent = prune(recent, now)
	l.windows[principalID] = recent

	return len(recent) < limit
}

// Count returns the number of live entries for a principal; used by
// tests and diagnostics.
func (l *Limiter) Count(principalID string) int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	recent := prune(l.windows[principalID], now)
	l.windows[principalID] = recent
	return len(recent)
}

// Reset drops every window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}

// prune drops timestamps that have aged out of the trailing window.
func prune(stamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-Window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
