package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_session:"
)

// Replaces the user's active session: the previous one is deleted in the same
// script that writes the new one.
// KEYS[1] session key, KEYS[2] user index key
// ARGV: session id, session prefix, user id, expiresAt ms, createdAt ms, ttl ms
var replaceSessionLua = redis.NewScript(`
local previous = redis.call("GET", KEYS[2])
if previous and previous ~= ARGV[1] then
  redis.call("DEL", ARGV[2] .. previous)
end
redis.call("HSET", KEYS[1], "userId", ARGV[3], "expiresAt", ARGV[4], "createdAt", ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[6])
if previous then
  return previous
end
return ""
`)

// KEYS[1] session key; ARGV: user index prefix, session id
var deleteSessionLua = redis.NewScript(`
local userId = redis.call("HGET", KEYS[1], "userId")
if not userId then
  return 0
end
redis.call("DEL", KEYS[1])
local indexKey = ARGV[1] .. userId
if redis.call("GET", indexKey) == ARGV[2] then
  redis.call("DEL", indexKey)
end
return 1
`)

// SessionRepository persists sessions in Redis.
type SessionRepository interface {
	// Replace stores sess as the user's only session and returns the id of the
	// session it superseded, if any.
	Replace(ctx context.Context, sess *domain.Session) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type sessionRepository struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

// NewSessionRepository builds the Redis session store. Expired sessions are kept
// for retention past their expiry so they can still be recognised as expired.
// The scripts derive the previous session key at run time, so the store needs a
// single-node client; a cluster would reject them with CROSSSLOT.
func NewSessionRepository(client *redis.Client, retention time.Duration) SessionRepository {
	return &sessionRepository{client: client, retention: retention, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userSessionKey(userID string) string {
	return userSessionKeyPrefix + userID
}

func (r *sessionRepository) Replace(ctx context.Context, sess *domain.Session) (string, error) {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = r.now()
	}
	ttl := sess.ExpiresAt.Sub(r.now()) + r.retention
	if ttl <= 0 {
		return "", fmt.Errorf("session %s already past retention", sess.ID)
	}

	previous, err := replaceSessionLua.Run(ctx, r.client,
		[]string{sessionKey(sess.ID), userSessionKey(sess.UserID)},
		sess.ID,
		sessionKeyPrefix,
		sess.UserID,
		sess.ExpiresAt.UnixMilli(),
		sess.CreatedAt.UnixMilli(),
		ttl.Milliseconds(),
	).Text()
	if err != nil {
		return "", fmt.Errorf("replace session: %w", err)
	}
	return previous, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	expiresAt, err := strconv.ParseInt(fields["expiresAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: bad expiresAt: %w", id, err)
	}
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)

	return &domain.Session{
		ID:        id,
		UserID:    fields["userId"],
		ExpiresAt: time.UnixMilli(expiresAt),
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}

func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	id, err := r.client.Get(ctx, userSessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user session: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	deleted, err := deleteSessionLua.Run(ctx, r.client, []string{sessionKey(id)}, userSessionKeyPrefix, id).Int()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	sess, err := r.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := r.Delete(ctx, sess.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
