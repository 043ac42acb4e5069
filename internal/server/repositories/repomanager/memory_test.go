package repomanager

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/renewals"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryManager_InTxSharesStores(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()
	require.NoError(t, m.RunMigrations(ctx))

	err := m.InTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Users.Create(ctx, &models.User{ID: "u1", Email: "a@example.com", PasswordHash: "h"}); err != nil {
			return err
		}
		return repos.Renewals.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h"})
	})
	require.NoError(t, err)

	_, err = m.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.RenewalStore().Len())

	sentinel := errors.New("stop")
	assert.ErrorIs(t, m.InTx(ctx, func(context.Context, Repositories) error { return sentinel }), sentinel)
	assert.NoError(t, m.Close())
}

func TestRedisRepositoryManager_UsesRedisForRenewals(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	db, mock := newDB(t)
	mock.ExpectClose()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m := NewRedisRepositoryManager(db, rdb, "test")
	_, ok := m.Renewals().(*renewals.RedisRepository)
	require.True(t, ok)

	ctx := context.Background()
	err = m.InTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Renewals.Create(ctx, &models.RenewalRecord{ID: "r1", UserID: "u1", TokenHash: "h"})
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:r1"))

	assert.NoError(t, m.Close())
}
