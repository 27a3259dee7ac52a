package session

import (
	"context"
	"time"
)

// Repository persists conversation sessions with a TTL.
//
// Implementations return pkg/errors.ErrSessionNotFound when the id is
// absent or expired, and pkg/errors.ErrStoreUnavailable when the backend
// cannot be reached.
type Repository interface {
	// Get returns the session for id.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores the session under id, resetting its TTL.
	Set(ctx context.Context, id string, s *Session, ttl time.Duration) error

	// Delete removes the session. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// ListAll returns every live session. Used for stats and cleanup.
	ListAll(ctx context.Context) ([]*Session, error)
}
