package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

func newRedisVerificationRepo(t *testing.T, retention time.Duration) (VerificationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisVerificationRepository(client, retention), mr
}

func testRecord(id string, attempts int) *domain.VerificationRecord {
	created := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	return &domain.VerificationRecord{
		ID:           id,
		Identity:     "a@example.com",
		CodeHash:     "digest-" + id,
		ExpiresAt:    created.Add(5 * time.Minute),
		AttemptsLeft: attempts,
		CreatedAt:    created,
	}
}

func TestRedisVerificationRepository_ReplaceSupersedes(t *testing.T) {
	repo, mr := newRedisVerificationRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, testRecord("first", 1)))
	require.NoError(t, repo.Replace(ctx, testRecord("second", 3)))

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)
	assert.Equal(t, "digest-second", got.CodeHash)
	assert.Equal(t, 3, got.AttemptsLeft)
	assert.True(t, got.ExpiresAt.Equal(testRecord("x", 0).ExpiresAt))

	assert.Equal(t, 65*time.Minute, mr.TTL("vc:a@example.com"))
	assert.Len(t, mr.Keys(), 1)
}

func TestRedisVerificationRepository_GetMissing(t *testing.T) {
	repo, _ := newRedisVerificationRepo(t, 0)
	_, err := repo.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisVerificationRepository_KeyExpiresAfterRetention(t *testing.T) {
	repo, mr := newRedisVerificationRepo(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Replace(ctx, testRecord("r", 3)))

	mr.FastForward(5*time.Minute + 59*time.Second)
	_, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	_, err = repo.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisVerificationRepository_Mutate(t *testing.T) {
	ctx := context.Background()
	errRejected := errors.New("rejected")

	t.Run("save keeps ttl", func(t *testing.T) {
		repo, mr := newRedisVerificationRepo(t, time.Hour)
		require.NoError(t, repo.Replace(ctx, testRecord("r", 3)))
		mr.FastForward(10 * time.Minute)
		ttlBefore := mr.TTL("vc:a@example.com")

		err := repo.Mutate(ctx, "a@example.com", func(r *domain.VerificationRecord) (RecordAction, error) {
			r.AttemptsLeft--
			return RecordSave, errRejected
		})
		assert.ErrorIs(t, err, errRejected)

		got, err := repo.Get(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 2, got.AttemptsLeft)
		assert.Equal(t, ttlBefore, mr.TTL("vc:a@example.com"))
	})

	t.Run("delete", func(t *testing.T) {
		repo, _ := newRedisVerificationRepo(t, time.Hour)
		require.NoError(t, repo.Replace(ctx, testRecord("r", 3)))

		err := repo.Mutate(ctx, "a@example.com", func(*domain.VerificationRecord) (RecordAction, error) {
			return RecordDelete, nil
		})
		require.NoError(t, err)

		_, err = repo.Get(ctx, "a@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("keep leaves record", func(t *testing.T) {
		repo, _ := newRedisVerificationRepo(t, time.Hour)
		require.NoError(t, repo.Replace(ctx, testRecord("r", 3)))

		err := repo.Mutate(ctx, "a@example.com", func(r *domain.VerificationRecord) (RecordAction, error) {
			r.AttemptsLeft = 0
			return RecordKeep, errRejected
		})
		assert.ErrorIs(t, err, errRejected)

		got, err := repo.Get(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, got.AttemptsLeft)
	})

	t.Run("missing", func(t *testing.T) {
		repo, _ := newRedisVerificationRepo(t, time.Hour)
		called := false
		err := repo.Mutate(ctx, "a@example.com", func(*domain.VerificationRecord) (RecordAction, error) {
			called = true
			return RecordKeep, nil
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, called)
	})
}

func TestRedisVerificationRepository_MutateConcurrentNoLostUpdates(t *testing.T) {
	repo, _ := newRedisVerificationRepo(t, time.Hour)
	ctx := context.Background()
	const workers = 10
	require.NoError(t, repo.Replace(ctx, testRecord("r", 100)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Mutate(ctx, "a@example.com", func(r *domain.VerificationRecord) (RecordAction, error) {
				r.AttemptsLeft--
				return RecordSave, nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrContended)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Positive(t, succeeded)
	assert.Equal(t, 100-succeeded, got.AttemptsLeft)
}

func TestRedisVerificationRepository_DeleteIfCurrent(t *testing.T) {
	repo, _ := newRedisVerificationRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, testRecord("newer", 3)))
	require.NoError(t, repo.DeleteIfCurrent(ctx, "a@example.com", "older"))

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.ID)

	require.NoError(t, repo.DeleteIfCurrent(ctx, "a@example.com", "newer"))
	_, err = repo.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.DeleteIfCurrent(ctx, "a@example.com", "newer"))
}

func TestRedisVerificationRepository_PurgeIsNoop(t *testing.T) {
	repo, _ := newRedisVerificationRepo(t, time.Hour)
	n, err := repo.Purge(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
