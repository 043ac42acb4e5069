package renewals

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoFactory func(t *testing.T) Repository

func newRedisRepoTest(t *testing.T) Repository {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisRepository(rdb, "")
}

func newMemoryRepoTest(t *testing.T) Repository {
	t.Helper()
	return NewMemoryRepository()
}

var backends = map[string]repoFactory{
	"memory": newMemoryRepoTest,
	"redis":  newRedisRepoTest,
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestContract_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		rec := &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h1"}
		require.NoError(t, repo.Create(ctx, rec))
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "h1", got.TokenHash)
		assert.False(t, got.Revoked)
		assert.Nil(t, got.RevokedAt)
		assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
	})
}

func TestContract_CreateDuplicate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h1"}))
		err := repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u2", TokenHash: "h2"})
		assert.ErrorIs(t, err, common.ErrAlreadyExists)

		got, err := repo.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
	})
}

func TestContract_GetMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestContract_MarkRevoked(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h1"}))

		require.NoError(t, repo.MarkRevoked(ctx, "r1"))
		got, err := repo.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, got.Revoked)
		assert.NotNil(t, got.RevokedAt)

		assert.ErrorIs(t, repo.MarkRevoked(ctx, "r1"), common.ErrAlreadyRevoked)
		assert.ErrorIs(t, repo.MarkRevoked(ctx, "missing"), common.ErrorNotFound)
	})
}

func TestContract_MarkAllRevokedForUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		for _, rec := range []*models.RenewalRecord{
			{ID: "a", UserID: "u1", TokenHash: "h"},
			{ID: "b", UserID: "u1", TokenHash: "h"},
			{ID: "c", UserID: "u1", TokenHash: "h"},
			{ID: "d", UserID: "u2", TokenHash: "h"},
		} {
			require.NoError(t, repo.Create(ctx, rec))
		}
		require.NoError(t, repo.MarkRevoked(ctx, "a"))

		n, err := repo.MarkAllRevokedForUser(ctx, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = repo.MarkAllRevokedForUser(ctx, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		for _, id := range []string{"a", "b", "c"} {
			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, got.Revoked, id)
		}
		other, err := repo.GetByID(ctx, "d")
		require.NoError(t, err)
		assert.False(t, other.Revoked)

		n, err = repo.MarkAllRevokedForUser(ctx, "nobody")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})
}

func TestContract_ConcurrentMarkRevokedHasOneWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h1"}))

		const workers = 16
		var wins, losses atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := repo.MarkRevoked(ctx, "r1")
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, common.ErrAlreadyRevoked):
					losses.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load())
		assert.EqualValues(t, workers-1, losses.Load())
	})
}
