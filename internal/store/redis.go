package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/model"
	"github.com/autovolt/voice-bridge-go/internal/util"
)

const (
	sessionKeyPrefix   = "voice:session:"
	userIndexKeyPrefix = "voice:user:"
	userIndexKeySuffix = ":sessions"
	windowKeyPrefix    = "voice:ratelimit:"
)

// Sessions are keyed by the token hash so a Redis dump never exposes a
// usable token.
func sessionKey(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

func userIndexKey(userID string) string {
	return userIndexKeyPrefix + userID + userIndexKeySuffix
}

func windowKey(key string) string {
	return windowKeyPrefix + util.HashToken(key)
}

var createSessionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end

redis.call('HSET', KEYS[1],
    'user_id', ARGV[1],
    'user_name', ARGV[2],
    'role', ARGV[3],
    'token_hint', ARGV[4],
    'created_at', ARGV[5],
    'expires_at', ARGV[6],
    'command_count', 0)
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
redis.call('SADD', KEYS[2], ARGV[7])
return 1
`)

var deleteSessionScript = redis.NewScript(`
local userID = redis.call('HGET', KEYS[1], 'user_id')
if not userID then
    return 0
end

redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[1] .. userID .. ARGV[2], ARGV[3])
return 1
`)

var recordCommandScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return false
end

redis.call('HINCRBY', KEYS[1], 'command_count', 1)
redis.call('HSET', KEYS[1], 'last_command_at', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

var windowHitScript = redis.NewScript(`
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
if count == 1 then
    redis.call('HSET', KEYS[1], 'start', ARGV[1])
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
elseif redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
end

local start = redis.call('HGET', KEYS[1], 'start')
return {count, tonumber(start)}
`)

// RedisSessionStore keeps each session in a hash that Redis expires at the
// session's ExpiresAt, plus a per-user set of token hashes.
type RedisSessionStore struct {
	client *redis.Client
}

var _ SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *model.VoiceSession) error {
	hash := util.HashToken(session.Token)
	created, err := createSessionScript.Run(ctx, s.client,
		[]string{sessionKey(hash), userIndexKey(session.UserID)},
		session.UserID,
		session.UserName,
		session.Role,
		session.TokenHint,
		session.CreatedAt.UnixMilli(),
		session.ExpiresAt.UnixMilli(),
		hash,
	).Int()
	if err != nil {
		return fmt.Errorf("create voice session: %w", err)
	}
	if created == 0 {
		return ErrTokenExists
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*model.VoiceSession, error) {
	return s.getByHash(ctx, util.HashToken(token))
}

func (s *RedisSessionStore) getByHash(ctx context.Context, hash string) (*model.VoiceSession, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("get voice session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeSession(fields)
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) (bool, error) {
	return s.deleteByHash(ctx, util.HashToken(token))
}

func (s *RedisSessionStore) deleteByHash(ctx context.Context, hash string) (bool, error) {
	deleted, err := deleteSessionScript.Run(ctx, s.client,
		[]string{sessionKey(hash)},
		userIndexKeyPrefix, userIndexKeySuffix, hash,
	).Int()
	if err != nil {
		return false, fmt.Errorf("delete voice session: %w", err)
	}
	return deleted == 1, nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID string) ([]*model.VoiceSession, error) {
	hashes, err := s.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list voice sessions: %w", err)
	}

	sessions := make([]*model.VoiceSession, 0, len(hashes))
	for _, hash := range hashes {
		session, err := s.getByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if session == nil {
			// Expired by Redis; drop the stale index entry.
			s.client.SRem(ctx, userIndexKey(userID), hash)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *RedisSessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	hashes, err := s.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list voice sessions: %w", err)
	}

	count := 0
	for _, hash := range hashes {
		deleted, err := s.deleteByHash(ctx, hash)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}
	s.client.Del(ctx, userIndexKey(userID))
	return count, nil
}

func (s *RedisSessionStore) RecordCommand(ctx context.Context, token string, at time.Time) (*model.VoiceSession, error) {
	raw, err := recordCommandScript.Run(ctx, s.client,
		[]string{sessionKey(util.HashToken(token))},
		at.UnixMilli(),
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record voice command: %w", err)
	}

	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		fields[raw[i]] = raw[i+1]
	}
	return decodeSession(fields)
}

// Sweep prunes index entries whose session hash Redis has already expired.
// Session hashes themselves carry a TTL and need no sweeping.
func (s *RedisSessionStore) Sweep(ctx context.Context, _ time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, userIndexKeyPrefix+"*"+userIndexKeySuffix, 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		hashes, err := s.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return removed, fmt.Errorf("sweep voice sessions: %w", err)
		}
		for _, hash := range hashes {
			exists, err := s.client.Exists(ctx, sessionKey(hash)).Result()
			if err != nil {
				return removed, fmt.Errorf("sweep voice sessions: %w", err)
			}
			if exists == 0 {
				s.client.SRem(ctx, indexKey, hash)
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("sweep voice sessions: %w", err)
	}
	return removed, nil
}

func decodeSession(fields map[string]string) (*model.VoiceSession, error) {
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("decode expires_at: %w", err)
	}
	count, err := strconv.ParseInt(fields["command_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode command_count: %w", err)
	}

	session := &model.VoiceSession{
		TokenHint:    fields["token_hint"],
		UserID:       fields["user_id"],
		UserName:     fields["user_name"],
		Role:         fields["role"],
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		CommandCount: count,
	}
	if v, ok := fields["last_command_at"]; ok {
		at, err := parseMillis(v)
		if err != nil {
			return nil, fmt.Errorf("decode last_command_at: %w", err)
		}
		session.LastCommandAt = &at
	}
	return session, nil
}

func parseMillis(v string) (time.Time, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// RedisWindowStore keeps one hash per key with a Redis TTL equal to the
// window, so elapsed windows disappear on their own.
type RedisWindowStore struct {
	client *redis.Client
}

var _ WindowStore = (*RedisWindowStore)(nil)

func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (model.RateLimitWindow, error) {
	result, err := windowHitScript.Run(ctx, s.client,
		[]string{windowKey(key)},
		now.UnixMilli(),
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return model.RateLimitWindow{}, fmt.Errorf("rate limit hit: %w", err)
	}
	if len(result) != 2 {
		log.Warn().Int("len", len(result)).Msg("unexpected redis rate limit result")
		return model.RateLimitWindow{}, fmt.Errorf("rate limit hit: unexpected result length %d", len(result))
	}

	return model.RateLimitWindow{
		Key:         key,
		WindowStart: time.UnixMilli(result[1]),
		Count:       int(result[0]),
	}, nil
}

func (s *RedisWindowStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
