package xrpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantSleep records requested delays without waiting.
func instantSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetryPolicyRun(t *testing.T) {
	var delays []time.Duration
	policy := DefaultRetryPolicy()
	policy.Sleep = instantSleep(&delays)

	calls := 0
	done, err := policy.Run(context.Background(), func() bool {
		calls++
		return calls == 3
	})
	require.NoError(t, err)
	assert.Equal(t, true, done)
	assert.Equal(t, 3, calls)

	// Linearly increasing backoff, one sleep before each attempt.
	require.Len(t, delays, 3)
	assert.Equal(t, 1000*time.Millisecond, delays[0])
	assert.Equal(t, 1500*time.Millisecond, delays[1])
	assert.Equal(t, 2000*time.Millisecond, delays[2])
}

func TestRetryPolicyExhaustion(t *testing.T) {
	var delays []time.Duration
	policy := DefaultRetryPolicy()
	policy.Sleep = instantSleep(&delays)

	calls := 0
	done, err := policy.Run(context.Background(), func() bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, false, done)
	assert.Equal(t, 20, calls)
}

func TestRetryPolicyContextCancelled(t *testing.T) {
	policy := DefaultRetryPolicy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	done, err := policy.Run(ctx, func() bool {
		calls++
		return false
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, false, done)
	assert.Equal(t, 0, calls)
}
