package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/renewals"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// MemoryRepositoryManager holds everything in process memory. It serves
// single-instance deployments and tests.
type MemoryRepositoryManager struct {
	users    *users.MemoryRepository
	renewals *renewals.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		renewals: renewals.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Renewals() renewals.Repository {
	return m.renewals
}

// RenewalStore exposes the concrete store so tests can inspect it.
func (m *MemoryRepositoryManager) RenewalStore() *renewals.MemoryRepository {
	return m.renewals
}

func (m *MemoryRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return fn(ctx, Repositories{Users: m.users, Renewals: m.renewals})
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
