package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Now()
	l := New(3, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if !l.Allow("gpt-4") {
			t.Fatalf("call %d should be admitted", i)
		}
	}
	if l.Allow("gpt-4") {
		t.Error("call over the limit should be rejected")
	}
	if l.Remaining("gpt-4") != 0 {
		t.Errorf("Remaining() = %d, want 0", l.Remaining("gpt-4"))
	}
}

func TestLimiter_PerModelIsolation(t *testing.T) {
	now := time.Now()
	l := New(1, WithClock(func() time.Time { return now }))

	if !l.Allow("gpt-4") {
		t.Fatal("first model should be admitted")
	}
	if !l.Allow("claude-3-opus") {
		t.Error("limits must be tracked per model")
	}
	if l.Allow("gpt-4") {
		t.Error("first model is over its limit")
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	now := time.Now()
	l := New(2, WithClock(func() time.Time { return now }))

	l.Allow("m")
	now = now.Add(30 * time.Second)
	l.Allow("m")

	if l.Allow("m") {
		t.Fatal("third call within the window should be rejected")
	}

	// 61s after the first call: the first timestamp ages out, one slot opens.
	now = now.Add(31 * time.Second)
	if !l.Allow("m") {
		t.Error("call should be admitted once the oldest entry leaves the window")
	}
	if l.Allow("m") {
		t.Error("window should be full again")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		if !l.Allow("m") {
			t.Fatal("disabled limiter must admit everything")
		}
	}
}

func TestLimiter_Reset(t *testing.T) {
	now := time.Now()
	l := New(1, WithClock(func() time.Time { return now }))

	l.Allow("m")
	if l.Allow("m") {
		t.Fatal("limit reached")
	}
	l.Reset("m")
	if !l.Allow("m") {
		t.Error("Reset() should clear the window")
	}
}
