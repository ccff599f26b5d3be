package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/config"
	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/store"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

const DefaultSessionTTL = 60 * time.Minute

// SessionService issues and validates voice tokens. Expired sessions are
// treated as absent and purged whenever they are encountered.
type SessionService struct {
	store         store.SessionStore
	ttl           time.Duration
	now           func() time.Time
	generateToken func() (string, error)
}

type SessionOption func(*SessionService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithTokenGenerator replaces util.GenerateToken.
func WithTokenGenerator(gen func() (string, error)) SessionOption {
	return func(s *SessionService) { s.generateToken = gen }
}

func NewSessionService(sessionStore store.SessionStore, ttl time.Duration, opts ...SessionOption) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionService{
		store:         sessionStore,
		ttl:           ttl,
		now:           time.Now,
		generateToken: util.GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession issues a new voice token. The caller must already have
// checked the user's voice capability.
func (s *SessionService) CreateSession(ctx context.Context, user *model.User) (*model.CreatedSession, error) {
	now := s.now()

	for attempt := 0; attempt < config.MaxTokenAttempts; attempt++ {
		token, err := s.generateToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}

		session := &model.VoiceSession{
			Token:     token,
			TokenHint: util.MaskToken(token),
			UserID:    user.ID,
			UserName:  user.Name,
			Role:      user.Role,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}

		err = s.store.Create(ctx, session)
		if errors.Is(err, store.ErrTokenExists) {
			log.Warn().Str("userId", user.ID).Int("attempt", attempt+1).Msg("voice token collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store voice session: %w", err)
		}

		log.Info().
			Str("userId", user.ID).
			Str("token", session.TokenHint).
			Time("expiresAt", session.ExpiresAt).
			Msg("voice session created")

		return &model.CreatedSession{
			Token:     token,
			ExpiresAt: session.ExpiresAt,
			UserID:    user.ID,
		}, nil
	}

	return nil, apperrors.Internal("Failed to allocate a unique voice token")
}

// ListSessions returns the user's live sessions, purging expired ones.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]*model.VoiceSession, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list voice sessions: %w", err)
	}

	now := s.now()
	live := make([]*model.VoiceSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Expired(now) {
			s.purge(ctx, session)
			continue
		}
		live = append(live, session)
	}
	return live, nil
}

func (s *SessionService) purge(ctx context.Context, session *model.VoiceSession) {
	if session.Token == "" {
		// Stores that do not retain raw tokens expire entries themselves.
		return
	}
	if _, err := s.store.Delete(ctx, session.Token); err != nil {
		log.Warn().Err(err).Str("userId", session.UserID).Msg("failed to purge expired voice session")
	}
}

// RevokeSession reports whether a session was removed. Revoking an unknown
// token is not an error.
func (s *SessionService) RevokeSession(ctx context.Context, token string) (bool, error) {
	revoked, err := s.store.Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("revoke voice session: %w", err)
	}
	return revoked, nil
}

// RevokeOwnedSession revokes token only if it belongs to userID. Tokens of
// other users are reported as not found.
func (s *SessionService) RevokeOwnedSession(ctx context.Context, userID, token string) (bool, error) {
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return false, fmt.Errorf("get voice session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return false, nil
	}
	return s.RevokeSession(ctx, token)
}

func (s *SessionService) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	count, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke voice sessions: %w", err)
	}
	return count, nil
}

// ValidateSession fails closed: unknown, revoked and expired tokens are all
// SESSION_INVALID.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (*model.VoiceSession, error) {
	if token == "" {
		return nil, apperrors.SessionInvalid()
	}

	session, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, apperrors.SessionInvalid().WithCause(err)
	}
	if session == nil {
		return nil, apperrors.SessionInvalid()
	}
	if session.Expired(s.now()) {
		if _, err := s.store.Delete(ctx, token); err != nil {
			log.Warn().Err(err).Str("userId", session.UserID).Msg("failed to purge expired voice session")
		}
		return nil, apperrors.SessionInvalid()
	}

	session.Token = token
	return session, nil
}

// RecordCommand bumps the command counter of a live session.
func (s *SessionService) RecordCommand(ctx context.Context, token string) (*model.VoiceSession, error) {
	session, err := s.store.RecordCommand(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("record voice command: %w", err)
	}
	if session == nil {
		return nil, apperrors.SessionInvalid()
	}
	session.Token = token
	return session, nil
}

// Sweep removes expired sessions ahead of lazy expiry.
func (s *SessionService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.Sweep(ctx, s.now())
	return int64(n), err
}
