package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialRetryPolicy_ShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	err := errors.New("fetch failed")

	require.True(t, p.ShouldRetry(err, 1))
	require.True(t, p.ShouldRetry(err, 2))
	require.False(t, p.ShouldRetry(err, 3), "attempt budget exhausted")
	require.False(t, p.ShouldRetry(nil, 1))
	require.False(t, p.ShouldRetry(context.Canceled, 1))
}

func TestExponentialRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy()
	prevCeiling := time.Duration(0)
	for attempt := 0; attempt < 6; attempt++ {
		d := p.Backoff(attempt)
		require.Positive(t, d)
		require.LessOrEqual(t, d, p.maxDelay)
		ceiling := time.Duration(float64(p.baseDelay) * float64(int(1)<<uint(attempt)))
		if ceiling > p.maxDelay {
			ceiling = p.maxDelay
		}
		require.LessOrEqual(t, d, ceiling)
		if ceiling > prevCeiling {
			prevCeiling = ceiling
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	require.False(t, StatusPending.Terminal())
	require.False(t, StatusProcessing.Terminal())
	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusFailed.Terminal())
}
