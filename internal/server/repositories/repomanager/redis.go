package repomanager

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/renewals"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager keeps users in PostgreSQL and renewal records in
// Redis. The two stores cannot share a transaction, so InTx hands fn the
// pool-bound repositories and rotation relies on the atomic revoke script.
type RedisRepositoryManager struct {
	db  *sql.DB
	rdb redis.UniversalClient

	users    users.Repository
	renewals renewals.Repository
}

func NewRedisRepositoryManager(db *sql.DB, rdb redis.UniversalClient, prefix string) *RedisRepositoryManager {
	return &RedisRepositoryManager{
		db:       db,
		rdb:      rdb,
		users:    users.NewPostgresRepository(db),
		renewals: renewals.NewRedisRepository(rdb, prefix),
	}
}

func (m *RedisRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *RedisRepositoryManager) Renewals() renewals.Repository {
	return m.renewals
}

func (m *RedisRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return fn(ctx, Repositories{Users: m.users, Renewals: m.renewals})
}

// RunMigrations migrates the users schema and checks Redis connectivity.
func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := runMigrations(ctx, m.db); err != nil {
		return err
	}
	return m.rdb.Ping(ctx).Err()
}

func (m *RedisRepositoryManager) Close() error {
	return errors.Join(m.rdb.Close(), m.db.Close())
}
