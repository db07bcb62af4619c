package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	cfg := RateLimitRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestRetryWithResult_StopsAfterMaxRetries(t *testing.T) {
	cfg := fastRetryConfig()
	calls := 0

	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, NewFigmaErrorWithStatus("GetImages", "K", 429, "rate limited")
	})

	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls, "one initial attempt plus MaxRetries retries")
	assert.True(t, IsRateLimited(err), "exhaustion should surface the rate-limit error")
}

func TestRetryWithResult_NonRateLimitPropagatesImmediately(t *testing.T) {
	calls := 0

	_, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "", NewFigmaErrorWithStatus("GetImages", "K", 500, "server error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithResult_SucceedsAfterRateLimit(t *testing.T) {
	calls := 0

	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", NewFigmaErrorWithStatus("GetImages", "K", 429, "slow down")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithResult_SuggestedDelayIsCapped(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.MaxRetries = 1
	calls := 0

	start := time.Now()
	_, _ = RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		e := NewFigmaErrorWithStatus("GetImages", "K", 429, "slow down")
		e.RetryAfter = time.Hour
		return 0, e
	})

	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), time.Second, "Retry-After must be capped at MaxDelay")
}

func TestRetryWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithResult(ctx, fastRetryConfig(), func() (int, error) {
		calls++
		return 0, nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := time.Second

	for attempt := 0; attempt < 8; attempt++ {
		d := CalculateBackoff(base, max, attempt, DefaultJitter)
		if d <= 0 {
			t.Errorf("attempt %d: delay %v should be positive", attempt, d)
		}
		if d > max {
			t.Errorf("attempt %d: delay %v exceeds max %v", attempt, d, max)
		}
	}
}
