package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huangshi/genealogy-api/internal/domain/session"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

const sessionKeyPrefix = "session:"

// SessionRepository stores conversation sessions in Redis as JSON with a
// per-key TTL, so expiry needs no sweeper.
type SessionRepository struct {
	client *Client
	log    logger.Logger
}

// NewSessionRepository creates a Redis-backed session repository.
func NewSessionRepository(client *Client, log logger.Logger) *SessionRepository {
	return &SessionRepository{
		client: client,
		log:    log.With(logger.Component("redis_sessions")),
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		// A corrupt entry is unrecoverable, treat it as absent.
		r.log.Warn("dropping corrupt session entry", logger.SessionID(id), logger.Error(err))
		_ = r.client.Delete(ctx, sessionKey(id))
		return nil, apperrors.ErrSessionNotFound
	}

	return &s, nil
}

// Set stores a session with the given TTL.
func (r *SessionRepository) Set(ctx context.Context, id string, s *session.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode session")
	}

	if err := r.client.Set(ctx, sessionKey(id), data, ttl); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	return nil
}

// Delete removes a session. Absent ids are not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, sessionKey(id)); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

// ListAll returns every live session.
func (r *SessionRepository) ListAll(ctx context.Context) ([]*session.Session, error) {
	keys, err := r.client.ScanKeys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}

	sessions := make([]*session.Session, 0, len(keys))
	for _, key := range keys {
		s, err := r.Get(ctx, strings.TrimPrefix(key, sessionKeyPrefix))
		if err != nil {
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				// Expired between scan and read.
				continue
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}
