// Package store holds voice sessions and rate-limit windows. Both stores
// are safe for concurrent use; expiry policy belongs to the callers, which
// pass the current time explicitly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

// ErrTokenExists is returned by Create when the token is already taken.
var ErrTokenExists = errors.New("voice token already exists")

type SessionStore interface {
	// Create inserts the session only if its token is absent.
	Create(ctx context.Context, s *model.VoiceSession) error
	// Get returns a copy of the session, or nil when absent.
	Get(ctx context.Context, token string) (*model.VoiceSession, error)
	Delete(ctx context.Context, token string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*model.VoiceSession, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	// RecordCommand atomically increments the command count and stamps the
	// last command time. Returns nil when the session is absent.
	RecordCommand(ctx context.Context, token string, at time.Time) (*model.VoiceSession, error)
	// Sweep removes sessions expired at now.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type WindowStore interface {
	// Hit counts one request against key. A window that has elapsed at now
	// is restarted before counting.
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (model.RateLimitWindow, error)
	// Sweep removes windows that have elapsed at now.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
