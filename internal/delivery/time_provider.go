package delivery

import (
	"context"
	"time"
)

// TimeProvider is an interface that provides time-related functionality
// that can be mocked in tests
type TimeProvider interface {
	// Now returns the current time
	Now() time.Time

	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration

	// Sleep waits for d or until the context is canceled, in which case
	// it returns the context error
	Sleep(ctx context.Context, d time.Duration) error
}

// RealTimeProvider is the default implementation of TimeProvider
// that uses the actual system time
type RealTimeProvider struct{}

// Now returns the current time
func (rtp RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t
func (rtp RealTimeProvider) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Sleep blocks for d using a timer so the wait stays cancelable
func (rtp RealTimeProvider) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Nothing to wait for, but still honor cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	// Wait for either the timer to expire or the context to be canceled
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewRealTimeProvider creates a new RealTimeProvider
func NewRealTimeProvider() TimeProvider {
	return &RealTimeProvider{}
}
