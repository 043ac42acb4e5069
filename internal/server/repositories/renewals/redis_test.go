package renewals

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T) (*RedisRepository, *redis.Client, *miniredis.Miniredis) {
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
	return NewRedisRepository(rdb, "rr"), rdb, mr
}

func TestRedis_KeyLayout(t *testing.T) {
	repo, rdb, _ := newRedisStoreTest(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h1"}))

	fields, err := rdb.HGetAll(ctx, "rr:r1").Result()
	require.NoError(t, err)
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "h1", fields["hashed_token"])
	assert.Equal(t, "0", fields["revoked"])

	members, err := rdb.SMembers(ctx, "rr:user:u1").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, members)

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(fixed))
}

func TestRedis_CorruptCreatedAt(t *testing.T) {
	repo, rdb, _ := newRedisStoreTest(t)
	ctx := context.Background()

	require.NoError(t, rdb.HSet(ctx, "rr:bad", "user_id", "u1", "created_at", "not-a-number").Err())

	_, err := repo.GetByID(ctx, "bad")
	assert.ErrorContains(t, err, "corrupt record bad")
}

func TestRedis_Unavailable(t *testing.T) {
	repo, _, mr := newRedisStoreTest(t)
	mr.Close()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "r1")
	assert.ErrorContains(t, err, "redis error")
	assert.ErrorContains(t, repo.MarkRevoked(ctx, "r1"), "redis error")
	_, err = repo.MarkAllRevokedForUser(ctx, "u1")
	assert.ErrorContains(t, err, "redis error")
	assert.ErrorContains(t, repo.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1"}), "redis error")
}
