package ratelimit

import (
	"testing"
	"time"
)

func TestAllowSuppressesWithinWindow(t *testing.T) {
	l := New(time.Minute)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	if !l.Allow("noise_nan:chunk-1") {
		t.Fatal("expected first call to be allowed")
	}
	if l.Allow("noise_nan:chunk-1") {
		t.Error("expected second call within the window to be suppressed")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l := New(time.Minute)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }
	l.Allow("k")

	l.now = func() time.Time { return fixed.Add(2 * time.Minute) }
	if !l.Allow("k") {
		t.Error("expected call after window to be allowed")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(time.Minute)
	if !l.Allow("a") || !l.Allow("b") {
		t.Error("expected distinct keys to be independently allowed")
	}
}
