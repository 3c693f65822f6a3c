package notifier

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 3, Window: time.Minute, Enabled: true})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !r.AllowAt(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if r.AllowAt(base.Add(5 * time.Second)) {
		t.Error("4th request inside window should be dropped")
	}
	if r.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", r.Dropped())
	}

	// Once the first timestamps age out, capacity returns.
	if !r.AllowAt(base.Add(61 * time.Second)) {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: false})
	now := time.Now()

	for i := 0; i < 100; i++ {
		if !r.AllowAt(now) {
			t.Fatal("disabled limiter must always allow")
		}
	}
	if r.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", r.Dropped())
	}
}

func TestRateLimiterRelease(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: true})
	now := time.Now()

	if !r.AllowAt(now) {
		t.Fatal("first request should be allowed")
	}
	// Delivery failed; refund the slot.
	r.Release()
	if !r.AllowAt(now) {
		t.Error("request after release should be allowed")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{Enabled: true})
	stats := r.Stats()
	if stats.MaxPerWindow != 30 || stats.Window != time.Minute {
		t.Errorf("defaults = %d per %v, want 30 per 1m", stats.MaxPerWindow, stats.Window)
	}
}

func TestRateLimiterReset(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: true})
	now := time.Now()

	r.AllowAt(now)
	r.AllowAt(now) // dropped
	r.Reset()

	if r.Dropped() != 0 {
		t.Errorf("dropped after reset = %d, want 0", r.Dropped())
	}
	if !r.AllowAt(now) {
		t.Error("request after reset should be allowed")
	}
}
