package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
)

func newSessionRepoTest(t *testing.T, retention time.Duration) (*sessionRepository, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := NewSessionRepository(rdb, retention).(*sessionRepository)
	return repo, mr, rdb
}

func TestSessionReplaceAndLookup(t *testing.T) {
	repo, _, _ := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()
	expires := time.Now().Add(30 * time.Minute).Truncate(time.Millisecond)

	previous, err := repo.Replace(ctx, &domain.Session{ID: "s-1", UserID: "36", ExpiresAt: expires})
	require.NoError(t, err)
	assert.Empty(t, previous)

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "36", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(expires))

	byUser, err := repo.GetByUserID(ctx, "36")
	require.NoError(t, err)
	assert.Equal(t, "s-1", byUser.ID)
}

func TestSessionReplaceDropsPreviousSession(t *testing.T) {
	repo, _, _ := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	_, err := repo.Replace(ctx, &domain.Session{ID: "old", UserID: "7", ExpiresAt: expires})
	require.NoError(t, err)
	previous, err := repo.Replace(ctx, &domain.Session{ID: "new", UserID: "7", ExpiresAt: expires})
	require.NoError(t, err)
	assert.Equal(t, "old", previous)

	_, err = repo.GetByID(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	current, err := repo.GetByUserID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "new", current.ID)
}

func TestSessionDeleteIsNotRepeatable(t *testing.T) {
	repo, _, rdb := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()

	_, err := repo.Replace(ctx, &domain.Session{ID: "s-1", UserID: "1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "s-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "s-1"), ErrNotFound)

	exists, err := rdb.Exists(ctx, userSessionKey("1")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionDeleteKeepsNewerIndex(t *testing.T) {
	repo, _, _ := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	_, err := repo.Replace(ctx, &domain.Session{ID: "a", UserID: "1", ExpiresAt: expires})
	require.NoError(t, err)
	_, err = repo.Replace(ctx, &domain.Session{ID: "b", UserID: "1", ExpiresAt: expires})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, "a"), ErrNotFound)
	current, err := repo.GetByUserID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", current.ID)
}

func TestExpiredSessionStaysReadableDuringRetention(t *testing.T) {
	repo, mr, _ := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()

	_, err := repo.Replace(ctx, &domain.Session{ID: "s-old", UserID: "36", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "s-old")
	require.NoError(t, err)
	assert.True(t, got.Expired(time.Now()))

	mr.FastForward(2 * time.Hour)
	_, err = repo.GetByID(ctx, "s-old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDeleteByUserIDWithoutSession(t *testing.T) {
	repo, _, _ := newSessionRepoTest(t, time.Hour)
	assert.NoError(t, repo.DeleteByUserID(context.Background(), "nobody"))
}

func TestSessionStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	repo := NewSessionRepository(rdb, time.Hour)
	mr.Close()

	_, err = repo.GetByID(context.Background(), "s-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSessionReplaceKeepsOneKeyPair(t *testing.T) {
	repo, mr, _ := newSessionRepoTest(t, time.Hour)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	_, err := repo.Replace(ctx, &domain.Session{ID: "old", UserID: "7", ExpiresAt: expires})
	require.NoError(t, err)
	_, err = repo.Replace(ctx, &domain.Session{ID: "new", UserID: "7", ExpiresAt: expires})
	require.NoError(t, err)

	assert.Equal(t, []string{sessionKey("new"), userSessionKey("7")}, mr.Keys())
}
