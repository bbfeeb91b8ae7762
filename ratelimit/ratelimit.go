// Package ratelimit bounds probe executions per target model with a
// sliding 60-second window.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the sliding interval over which calls are counted.
const Window = time.Minute

// Limiter tracks call timestamps per model name. A call is admitted when
// fewer than limit calls happened within the window ending now. Safe for
// concurrent use.
type Limiter struct {
	mu    sync.Mutex
	limit int
	calls map[string][]time.Time
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting at most limit calls per model per window.
// A non-positive limit disables limiting.
func New(limit int, opts ...Option) *Limiter {
	l := &Limiter{
		limit: limit,
		calls: make(map[string][]time.Time),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a call for the model if the window has room and reports
// whether the call may proceed.
func (l *Limiter) Allow(modelName string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.calls[modelName], now.Add(-Window))
	if len(recent) >= l.limit {
		l.calls[modelName] = recent
		return false
	}
	l.calls[modelName] = append(recent, now)
	return true
}

// Remaining reports how many calls the model may still make in the current
// window.
func (l *Limiter) Remaining(modelName string) int {
	if l.limit <= 0 {
		return int(^uint(0) >> 1)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.calls[modelName], l.now().Add(-Window))
	l.calls[modelName] = recent
	if n := l.limit - len(recent); n > 0 {
		return n
	}
	return 0
}

// Reset forgets all recorded calls for the model.
func (l *Limiter) Reset(modelName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.calls, modelName)
}

// prune drops timestamps at or before cutoff, keeping order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
