package engine

import (
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff()

	// Attempt 0 returns the base.
	if d := b.Delay(0); d != 1*time.Second {
		t.Errorf("Delay(0) = %v, want 1s", d)
	}

	// 1*2^1 = 2s, 1*2^2 = 4s
	if d := b.Delay(1); d != 2*time.Second {
		t.Errorf("Delay(1) = %v, want 2s", d)
	}
	if d := b.Delay(2); d != 4*time.Second {
		t.Errorf("Delay(2) = %v, want 4s", d)
	}

	// Saturates at the ceiling.
	if d := b.Delay(10); d != 30*time.Second {
		t.Errorf("Delay(10) = %v, want 30s (saturated)", d)
	}
	if d := b.Delay(1000); d != 30*time.Second {
		t.Errorf("Delay(1000) = %v, want 30s (saturated)", d)
	}
}

func TestBackoff_MonotoneNonNegative(t *testing.T) {
	b := DefaultBackoff()

	prev := time.Duration(-1)
	for n := 0; n <= 64; n++ {
		d := b.Delay(n)
		if d < 0 {
			t.Fatalf("Delay(%d) = %v, negative", n, d)
		}
		if d > b.Ceiling {
			t.Fatalf("Delay(%d) = %v, exceeds ceiling %v", n, d, b.Ceiling)
		}
		if d < prev {
			t.Fatalf("Delay(%d) = %v, decreased from %v", n, d, prev)
		}
		prev = d
	}
}

func TestBackoff_NegativeAttempt(t *testing.T) {
	b := DefaultBackoff()
	if d := b.Delay(-5); d != b.Base {
		t.Errorf("Delay(-5) = %v, want base %v", d, b.Base)
	}
}
