package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangshi/genealogy-api/internal/application/services"
	"github.com/huangshi/genealogy-api/internal/domain/session"
	"github.com/huangshi/genealogy-api/internal/infrastructure/cache/memory"
	apperrors "github.com/huangshi/genealogy-api/pkg/errors"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// failingRepo simulates an unreachable primary store.
type failingRepo struct{}

func (failingRepo) Get(context.Context, string) (*session.Session, error) {
	return nil, apperrors.ErrStoreUnavailable
}

func (failingRepo) Set(context.Context, string, *session.Session, time.Duration) error {
	return apperrors.ErrStoreUnavailable
}

func (failingRepo) Delete(context.Context, string) error {
	return apperrors.ErrStoreUnavailable
}

func (failingRepo) ListAll(context.Context) ([]*session.Session, error) {
	return nil, apperrors.ErrStoreUnavailable
}

func newSessionService(t *testing.T, primary session.Repository) *services.SessionService {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return services.NewSessionService(primary, memory.NewSessionRepository(log), time.Hour, log)
}

func TestSessionService_FallbackWhenPrimaryDown(t *testing.T) {
	t.Parallel()

	svc := newSessionService(t, failingRepo{})
	ctx := context.Background()

	s := session.New()
	s.AppendExchange("q", "a")

	require.NoError(t, svc.Save(ctx, s))

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	assert.Equal(t, 1, svc.Count(ctx))

	require.NoError(t, svc.Delete(ctx, s.ID))
	_, err = svc.Get(ctx, s.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSessionService_NoPrimary(t *testing.T) {
	t.Parallel()

	svc := newSessionService(t, nil)
	ctx := context.Background()

	s := session.New()
	require.NoError(t, svc.Save(ctx, s))

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestSessionService_GetOrCreate(t *testing.T) {
	t.Parallel()

	svc := newSessionService(t, nil)
	ctx := context.Background()

	// Empty id creates a fresh session.
	fresh, err := svc.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.True(t, session.IsValidID(fresh.ID))

	// Unknown id is kept for the new session.
	id := "6f1c2a40-9d3e-4b7f-8a1c-0123456789ab"
	named, err := svc.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, named.ID)
	assert.Empty(t, named.Messages)

	// Existing id comes back with history.
	named.AppendExchange("q", "a")
	require.NoError(t, svc.Save(ctx, named))

	again, err := svc.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.Len(t, again.Messages, 2)
}
