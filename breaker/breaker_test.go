package breaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(b *Breaker) error {
	_, err := b.Execute(func() (any, error) { return nil, errBoom })
	return err
}

func succeed(b *Breaker) error {
	_, err := b.Execute(func() (any, error) { return "ok", nil })
	return err
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("test", 3, 1, time.Minute, nil)

	for i := 0; i < 2; i++ {
		fail(b)
		if got := b.State(); got != StateClosed {
			t.Fatalf("state after %d failures = %v, want closed", i+1, got)
		}
	}
	fail(b)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", got)
	}

	if err := succeed(b); !errors.Is(err, ErrOpen) {
		t.Errorf("Execute() while open = %v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("test", 3, 1, time.Minute, nil)

	fail(b)
	fail(b)
	succeed(b)
	fail(b)
	fail(b)

	if got := b.State(); got != StateClosed {
		t.Errorf("state = %v, want closed (success must reset the count)", got)
	}
	if got := b.ConsecutiveFailures(); got != 2 {
		t.Errorf("ConsecutiveFailures() = %d, want 2", got)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := New("test", 2, 2, 50*time.Millisecond, nil)

	fail(b)
	fail(b)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state after cool-down = %v, want half_open", got)
	}

	if err := succeed(b); err != nil {
		t.Fatalf("first trial call failed: %v", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state after one trial success = %v, want half_open", got)
	}
	if err := succeed(b); err != nil {
		t.Fatalf("second trial call failed: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("state after success threshold = %v, want closed", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New("test", 2, 2, 50*time.Millisecond, nil)

	fail(b)
	fail(b)
	time.Sleep(60 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", got)
	}

	fail(b)
	if got := b.State(); got != StateOpen {
		t.Errorf("state after half-open failure = %v, want open", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", 1, 1, time.Hour, nil)

	fail(b)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	b.Reset()
	if got := b.State(); got != StateClosed {
		t.Errorf("state after Reset() = %v, want closed", got)
	}
	if err := succeed(b); err != nil {
		t.Errorf("Execute() after Reset() = %v, want success", err)
	}
}

func TestBreaker_RemainingCooldown(t *testing.T) {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	now := base
	b := New("test", 1, 1, time.Hour, nil, WithClock(func() time.Time { return now }))

	if got := b.RemainingCooldown(); got != 0 {
		t.Fatalf("RemainingCooldown() while closed = %v, want 0", got)
	}

	fail(b)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if got := b.RemainingCooldown(); got != time.Hour {
		t.Errorf("RemainingCooldown() at open = %v, want 1h", got)
	}

	now = base.Add(20 * time.Minute)
	if got := b.RemainingCooldown(); got != 40*time.Minute {
		t.Errorf("RemainingCooldown() after 20m = %v, want 40m", got)
	}

	now = base.Add(2 * time.Hour)
	if got := b.RemainingCooldown(); got != 0 {
		t.Errorf("RemainingCooldown() past cool-down = %v, want 0", got)
	}
}

func TestBreaker_DefaultsApplied(t *testing.T) {
	b := New("test", 0, 0, 0, nil)
	for i := 0; i < DefaultFailureThreshold-1; i++ {
		fail(b)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state below default threshold = %v, want closed", got)
	}
	fail(b)
	if got := b.State(); got != StateOpen {
		t.Errorf("state at default threshold = %v, want open", got)
	}
}
