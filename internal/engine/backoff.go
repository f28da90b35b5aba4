package engine

import (
	"math"
	"time"
)

// Backoff computes capped exponential retry delays. Delays are
// deterministic; there is no jitter, matching the reference behavior
// (retries for distinct operations reported together will wake together).
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Ceiling    time.Duration
}

// DefaultBackoff returns the reference constants: 1s base, doubling, 30s
// ceiling. 1s, 2s, 4s, 8s, ... capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       1 * time.Second,
		Multiplier: 2.0,
		Ceiling:    30 * time.Second,
	}
}

// Delay returns the delay before attempt n (0-indexed):
// Base * Multiplier^n, capped at Ceiling. Delay(0) == Base. Negative
// attempts are treated as zero, so the result is never negative.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	if delay > float64(b.Ceiling) {
		return b.Ceiling
	}
	return time.Duration(delay)
}
