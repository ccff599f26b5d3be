package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/store"
)

type failingWindowStore struct{}

func (failingWindowStore) Hit(context.Context, string, time.Duration, time.Time) (model.RateLimitWindow, error) {
	return model.RateLimitWindow{}, errors.New("connection refused")
}

func (failingWindowStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	window := 15 * time.Minute
	limiter := NewRateLimiter(store.NewMemoryWindowStore(), 3, window).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "token-a")
		require.NoError(t, err, "request %d should be admitted", i+1)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 3-i-1, decision.Remaining)
	}

	clock.Advance(5 * time.Minute)
	decision, err := limiter.Allow(ctx, "token-a")
	require.Error(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, apperrors.RetryAfterDetails{RetryAfter: 600}, appErr.Details)

	t.Run("separate tokens have separate budgets", func(t *testing.T) {
		decision, err := limiter.Allow(ctx, "token-b")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("admits again after the window elapses", func(t *testing.T) {
		clock.Advance(10 * time.Minute)
		decision, err := limiter.Allow(ctx, "token-a")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 2, decision.Remaining)
		assert.Equal(t, clock.Now().Add(window), decision.ResetAt)
	})
}

func TestRateLimiter_FailsClosed(t *testing.T) {
	limiter := NewRateLimiter(failingWindowStore{}, 3, time.Minute)

	decision, err := limiter.Allow(context.Background(), "token-a")
	require.Error(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(store.NewMemoryWindowStore(), 0, 0)
	assert.Equal(t, DefaultRateLimit, limiter.Limit())
	assert.Equal(t, DefaultRateWindow, limiter.window)
}
