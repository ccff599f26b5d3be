package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/store"
)

const (
	DefaultRateLimit  = 100
	DefaultRateWindow = 15 * time.Minute
)

// RateDecision is the outcome of one admission check.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets.
func (d RateDecision) RetryAfter(now time.Time) time.Duration {
	return d.ResetAt.Sub(now)
}

// RateLimiter admits at most limit requests per key in each fixed window.
type RateLimiter struct {
	windows store.WindowStore
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(windows store.WindowStore, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		windows: windows,
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces time.Now; used by tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) Limit() int {
	return rl.limit
}

func (rl *RateLimiter) Now() time.Time {
	return rl.now()
}

// Allow counts one request against key. A store failure denies the request
// with an internal error rather than admitting it.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	now := rl.now()

	w, err := rl.windows.Hit(ctx, key, rl.window, now)
	if err != nil {
		log.Warn().Err(err).Msg("rate limit check failed, denying request for safety")
		return RateDecision{Limit: rl.limit, ResetAt: now.Add(rl.window)},
			apperrors.Wrap(apperrors.ErrCodeInternal, "Rate limit check failed", err)
	}

	decision := RateDecision{
		Allowed:   w.Count <= rl.limit,
		Limit:     rl.limit,
		Remaining: max(rl.limit-w.Count, 0),
		ResetAt:   w.WindowStart.Add(rl.window),
	}
	if !decision.Allowed {
		return decision, apperrors.RateLimitExceeded(decision.RetryAfter(now))
	}
	return decision, nil
}

// Sweep drops elapsed windows.
func (rl *RateLimiter) Sweep(ctx context.Context) (int64, error) {
	n, err := rl.windows.Sweep(ctx, rl.now())
	return int64(n), err
}
