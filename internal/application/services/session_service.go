package services

import (
	"context"
	"time"

	"github.com/huangshi/genealogy-api/internal/domain/session"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// SessionService fronts two session repositories: a durable primary
// (Redis) and an in-process fallback. Every call tries the primary first
// and degrades per call, so a Redis outage never takes conversations down,
// it only narrows them to this instance.
type SessionService struct {
	primary  session.Repository // may be nil when Redis is not configured
	fallback session.Repository
	ttl      time.Duration
	log      logger.Logger
}

// NewSessionService creates the session service. primary may be nil.
func NewSessionService(primary, fallback session.Repository, ttl time.Duration, log logger.Logger) *SessionService {
	return &SessionService{
		primary:  primary,
		fallback: fallback,
		ttl:      ttl,
		log:      log.With(logger.Component("sessions")),
	}
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Get returns the session for id, consulting the fallback when the
// primary is down or does not have it.
func (s *SessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	if s.primary != nil {
		sess, err := s.primary.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
			s.log.Warn("primary session store unavailable, using fallback",
				logger.SessionID(id), logger.Error(err))
		}
	}
	return s.fallback.Get(ctx, id)
}

// GetOrCreate returns the existing session for id, or a fresh one. An
// empty id always creates. A provided id that is unknown is reused for
// the new session so the client's reference stays stable.
func (s *SessionService) GetOrCreate(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return session.New(), nil
	}

	sess, err := s.Get(ctx, id)
	if err == nil {
		sess.Touch()
		return sess, nil
	}
	if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, err
	}

	sess = session.New()
	sess.ID = id
	return sess, nil
}

// Save persists the session, falling back to the in-process store when
// the primary write fails.
func (s *SessionService) Save(ctx context.Context, sess *session.Session) error {
	if s.primary != nil {
		err := s.primary.Set(ctx, sess.ID, sess, s.ttl)
		if err == nil {
			return nil
		}
		s.log.Warn("primary session store write failed, using fallback",
			logger.SessionID(sess.ID), logger.Error(err))
	}
	return s.fallback.Set(ctx, sess.ID, sess, s.ttl)
}

// Delete removes the session from both stores. Absent ids are not an error.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if s.primary != nil {
		if err := s.primary.Delete(ctx, id); err != nil {
			s.log.Warn("primary session store delete failed",
				logger.SessionID(id), logger.Error(err))
		}
	}
	return s.fallback.Delete(ctx, id)
}

// Count returns the number of live sessions across both stores, deduped
// by id.
func (s *SessionService) Count(ctx context.Context) int {
	seen := make(map[string]struct{})

	if s.primary != nil {
		if sessions, err := s.primary.ListAll(ctx); err == nil {
			for _, sess := range sessions {
				seen[sess.ID] = struct{}{}
			}
		}
	}
	if sessions, err := s.fallback.ListAll(ctx); err == nil {
		for _, sess := range sessions {
			seen[sess.ID] = struct{}{}
		}
	}

	return len(seen)
}
