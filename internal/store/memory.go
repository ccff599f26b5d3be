package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

const shardCount = 16

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*model.VoiceSession
}

// MemorySessionStore shards sessions by token so unrelated tokens never
// contend. Lock order is shard, then user index.
type MemorySessionStore struct {
	shards [shardCount]*sessionShard

	indexMu sync.Mutex
	byUser  map[string]map[string]struct{}
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	s := &MemorySessionStore{byUser: make(map[string]map[string]struct{})}
	for i := range s.shards {
		s.shards[i] = &sessionShard{sessions: make(map[string]*model.VoiceSession)}
	}
	return s
}

func (s *MemorySessionStore) shard(token string) *sessionShard {
	return s.shards[shardIndex(token)]
}

func (s *MemorySessionStore) Create(_ context.Context, session *model.VoiceSession) error {
	sh := s.shard(session.Token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[session.Token]; ok {
		return ErrTokenExists
	}
	sh.sessions[session.Token] = session.Clone()

	s.indexMu.Lock()
	tokens, ok := s.byUser[session.UserID]
	if !ok {
		tokens = make(map[string]struct{})
		s.byUser[session.UserID] = tokens
	}
	tokens[session.Token] = struct{}{}
	s.indexMu.Unlock()

	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (*model.VoiceSession, error) {
	sh := s.shard(token)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return sh.sessions[token].Clone(), nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) (bool, error) {
	sh := s.shard(token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	session, ok := sh.sessions[token]
	if !ok {
		return false, nil
	}
	delete(sh.sessions, token)
	s.unindex(session.UserID, token)
	return true, nil
}

func (s *MemorySessionStore) unindex(userID, token string) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	tokens := s.byUser[userID]
	delete(tokens, token)
	if len(tokens) == 0 {
		delete(s.byUser, userID)
	}
}

func (s *MemorySessionStore) userTokens(userID string) []string {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	tokens := make([]string, 0, len(s.byUser[userID]))
	for t := range s.byUser[userID] {
		tokens = append(tokens, t)
	}
	return tokens
}

func (s *MemorySessionStore) ListByUser(ctx context.Context, userID string) ([]*model.VoiceSession, error) {
	tokens := s.userTokens(userID)
	sessions := make([]*model.VoiceSession, 0, len(tokens))
	for _, t := range tokens {
		session, _ := s.Get(ctx, t)
		if session != nil {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *MemorySessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, t := range s.userTokens(userID) {
		deleted, _ := s.Delete(ctx, t)
		if deleted {
			count++
		}
	}
	return count, nil
}

func (s *MemorySessionStore) RecordCommand(_ context.Context, token string, at time.Time) (*model.VoiceSession, error) {
	sh := s.shard(token)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	session, ok := sh.sessions[token]
	if !ok {
		return nil, nil
	}
	session.CommandCount++
	stamp := at
	session.LastCommandAt = &stamp
	return session.Clone(), nil
}

func (s *MemorySessionStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for token, session := range sh.sessions {
			if session.Expired(now) {
				delete(sh.sessions, token)
				s.unindex(session.UserID, token)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

type windowEntry struct {
	start  time.Time
	length time.Duration
	count  int
}

func (e *windowEntry) elapsed(now time.Time) bool {
	return !now.Before(e.start.Add(e.length))
}

type windowShard struct {
	mu      sync.Mutex
	windows map[string]*windowEntry
}

// MemoryWindowStore keeps fixed rate-limit windows in sharded maps.
type MemoryWindowStore struct {
	shards [shardCount]*windowShard
}

var _ WindowStore = (*MemoryWindowStore)(nil)

func NewMemoryWindowStore() *MemoryWindowStore {
	s := &MemoryWindowStore{}
	for i := range s.shards {
		s.shards[i] = &windowShard{windows: make(map[string]*windowEntry)}
	}
	return s
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (model.RateLimitWindow, error) {
	sh := s.shards[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, ok := sh.windows[key]
	if !ok || entry.elapsed(now) {
		entry = &windowEntry{start: now, length: window}
		sh.windows[key] = entry
	}
	entry.count++

	return model.RateLimitWindow{Key: key, WindowStart: entry.start, Count: entry.count}, nil
}

func (s *MemoryWindowStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, entry := range sh.windows {
			if entry.elapsed(now) {
				delete(sh.windows, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}
