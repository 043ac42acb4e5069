// Package repomanager assembles the user and renewal repositories for a
// storage backend and exposes a unit-of-work boundary over them.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/renewals"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// Repositories is the set of stores visible inside a unit of work.
type Repositories struct {
	Users    users.Repository
	Renewals renewals.Repository
}

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Renewals() renewals.Repository

	// InTx runs fn against repositories that share one unit of work. On the
	// postgres backend that is a database transaction; other backends rely on
	// the per-operation atomicity of their stores.
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	Close() error
}
