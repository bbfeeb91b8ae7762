// Package breaker provides the circuit breaker that protects target models
// from repeated failing probe traffic. It adapts sony/gobreaker to the
// scanner's configuration and state vocabulary.
//
// The breaker is CLOSED until failureThreshold consecutive failures trip it
// OPEN. After the cool-down it admits trial calls in HALF_OPEN;
// successThreshold consecutive successes close it again, a single failure
// reopens it.
package breaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// State is the breaker's externally visible state.
type State string

// Breaker states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// String returns the string representation of the state.
func (s State) String() string { return string(s) }

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// errRecordedFailure feeds RecordFailure into gobreaker's failure count.
var errRecordedFailure = errors.New("recorded failure")

// Default thresholds, matching the integration config defaults.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultTimeout          = 60 * time.Second
)

// Breaker wraps gobreaker with reset support and string states.
// Safe for concurrent use.
type Breaker struct {
	mu       sync.RWMutex
	cb       *gobreaker.CircuitBreaker
	settings gobreaker.Settings

	timeout time.Duration
	now     func() time.Time

	openMu   sync.Mutex
	openedAt time.Time
}

// Option adjusts breaker construction.
type Option func(*Breaker)

// WithClock overrides the breaker's time source. Used by tests to make
// cool-down arithmetic deterministic.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a breaker. failureThreshold is the consecutive failure count
// that trips it, successThreshold the consecutive successes that close it
// from half-open, and timeout the open-state cool-down.
func New(name string, failureThreshold, successThreshold int, timeout time.Duration, logger *slog.Logger, opts ...Option) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if successThreshold <= 0 {
		successThreshold = DefaultSuccessThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{timeout: timeout, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(successThreshold),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.openMu.Lock()
				b.openedAt = b.now()
				b.openMu.Unlock()
			}
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", fromGobreaker(from),
				"to", fromGobreaker(to))
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	b.settings = settings
	return b
}

// Execute runs fn under the breaker. While the breaker is open (or the
// half-open trial quota is exhausted) it returns ErrOpen without invoking
// fn; otherwise fn's error feeds the failure count.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	b.mu.RLock()
	cb := b.cb
	b.mu.RUnlock()

	out, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return out, ErrOpen
	}
	return out, err
}

// State returns the breaker's current state. Reading the state also
// performs the OPEN to HALF_OPEN transition once the cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fromGobreaker(b.cb.State())
}

// RecordSuccess feeds one success into the breaker without running a call
// under it. Integrations record outcomes after executing probes themselves.
// No-op while the breaker is open.
func (b *Breaker) RecordSuccess() {
	b.Execute(func() (any, error) { return nil, nil })
}

// RecordFailure feeds one failure into the breaker. No-op while the breaker
// is open.
func (b *Breaker) RecordFailure() {
	b.Execute(func() (any, error) { return nil, errRecordedFailure })
}

// RemainingCooldown returns how long until an open breaker admits trial
// calls, or zero when the breaker is not open.
func (b *Breaker) RemainingCooldown() time.Duration {
	if b.State() != StateOpen {
		return 0
	}
	b.openMu.Lock()
	openedAt := b.openedAt
	b.openMu.Unlock()

	remain := b.timeout - b.now().Sub(openedAt)
	if remain < 0 {
		return 0
	}
	return remain
}

// ConsecutiveFailures returns the current consecutive failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int(b.cb.Counts().ConsecutiveFailures)
}

// Reset forces the breaker back to CLOSED with clear counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = gobreaker.NewCircuitBreaker(b.settings)
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
