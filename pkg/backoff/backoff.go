// Package backoff computes retry wait times using capped exponential growth
// with optional jitter.
package backoff

import (
	"math/rand"
	"time"
)

// Policy describes how the wait between retry attempts grows.
// It is a value object: configure it once and pass it by value.
type Policy struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Max caps the exponential growth.
	Max time.Duration

	// Jitter adds a uniformly random amount in [0, 0.25*delay] so that
	// retrying senders do not synchronize against the same server.
	Jitter bool
}

// DefaultPolicy returns the policy the delivery engine uses when none is
// configured: 10s base, 5 minute cap, jitter enabled.
func DefaultPolicy() Policy {
	return Policy{
		Base:   10 * time.Second,
		Max:    5 * time.Minute,
		Jitter: true,
	}
}

// Delay returns the wait before retry number attempt (zero-based):
// min(Base*2^attempt, Max), plus the jitter draw when enabled.
// Without jitter the result is deterministic.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		// Doubling past Max (or overflowing) pins the delay to the cap.
		if delay >= p.Max || delay < 0 {
			delay = p.Max
			break
		}
	}
	if delay > p.Max {
		delay = p.Max
	}

	if p.Jitter && delay > 0 {
		delay += time.Duration(rand.Float64() * 0.25 * float64(delay))
	}
	return delay
}
