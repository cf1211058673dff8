// Package ratelimit provides per-component log rate limiting (spec.md
// §7: "Logs are rate-limited at component granularity").
package ratelimit

import (
	"sync"
	"time"
)

// Limiter suppresses repeated log lines for the same key within a window.
type Limiter struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// New constructs a Limiter that allows at most one event per key per window.
func New(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether an event for key should be logged now, updating
// its last-seen time if so.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.last[key]; ok && now.Sub(t) < l.window {
		return false
	}
	l.last[key] = now
	return true
}
