package memory

import (
	"context"
	"sync"
	"time"

	"github.com/huangshi/genealogy-api/internal/domain/session"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

type entry struct {
	session   *session.Session
	expiresAt time.Time
}

// SessionRepository is the in-process fallback store used when Redis is
// unavailable. Entries expire lazily on read plus a periodic sweep.
// Contents do not survive restarts and are not shared across instances.
type SessionRepository struct {
	mu      sync.RWMutex
	entries map[string]entry
	log     logger.Logger
}

// NewSessionRepository creates an in-memory session repository.
func NewSessionRepository(log logger.Logger) *SessionRepository {
	return &SessionRepository{
		entries: make(map[string]entry),
		log:     log.With(logger.Component("memory_sessions")),
	}
}

func clone(s *session.Session) *session.Session {
	cp := *s
	cp.Messages = append([]session.Message(nil), s.Messages...)
	return &cp
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(_ context.Context, id string) (*session.Session, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if time.Now().After(e.expiresAt) {
		r.mu.Lock()
		// Re-check under the write lock, Set may have raced us.
		if cur, ok := r.entries[id]; ok && time.Now().After(cur.expiresAt) {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		return nil, apperrors.ErrSessionNotFound
	}

	return clone(e.session), nil
}

// Set stores a session with the given TTL.
func (r *SessionRepository) Set(_ context.Context, id string, s *session.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = entry{
		session:   clone(s),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a session. Absent ids are not an error.
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

// ListAll returns every unexpired session.
func (r *SessionRepository) ListAll(_ context.Context) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	sessions := make([]*session.Session, 0, len(r.entries))
	for _, e := range r.entries {
		if now.After(e.expiresAt) {
			continue
		}
		sessions = append(sessions, clone(e.session))
	}
	return sessions, nil
}

// StartCleanup launches the expiry sweeper. It stops when ctx is done.
func (r *SessionRepository) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *SessionRepository) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug("swept expired sessions", logger.Int("removed", removed))
	}
}
