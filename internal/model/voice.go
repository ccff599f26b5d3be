package model

import "time"

type VoiceSession struct {
	Token         string     `json:"-"`
	TokenHint     string     `json:"tokenHint"`
	UserID        string     `json:"userId"`
	UserName      string     `json:"userName"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CommandCount  int64      `json:"commandCount"`
	LastCommandAt *time.Time `json:"lastCommandAt,omitempty"`
}

// Expired reports whether the session is no longer usable at now.
func (s *VoiceSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy so callers never alias store-owned state.
func (s *VoiceSession) Clone() *VoiceSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastCommandAt != nil {
		t := *s.LastCommandAt
		c.LastCommandAt = &t
	}
	return &c
}

type RateLimitWindow struct {
	Key         string    `json:"key"`
	WindowStart time.Time `json:"windowStart"`
	Count       int       `json:"count"`
}

// CreatedSession is returned to the caller exactly once, at creation.
type CreatedSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}
