package xrpl

import (
	"context"
	"time"
)

// RetryPolicy bounds a sequential polling loop: up to MaxAttempts
// tries, sleeping Backoff(attempt) before each one. Attempts never
// overlap; a later attempt runs only after the earlier one came back
// empty.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration

	// Sleep is swappable so tests run against a fake clock. Nil means
	// real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy polls 20 times with a linearly increasing delay
// (1s, 1.5s, 2s, ...), trading latency for confirmation certainty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 20,
		Backoff: func(attempt int) time.Duration {
			return time.Second + time.Duration(attempt)*500*time.Millisecond
		},
	}
}

// Run calls fn until it reports done or attempts are exhausted.
// Returns false when every attempt came back empty, and an error only
// when the context is cancelled mid-loop.
func (p RetryPolicy) Run(ctx context.Context, fn func() bool) (bool, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return false, err
		}
		if fn() {
			return true, nil
		}
	}
	return false, nil
}

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
