// Package metadata stores small key/value records of the CLI (the cached
// token pair and the e-mail it belongs to) in the local SQLite database.
package metadata

import (
	"context"
)

// Repository is a key/value view of the metadata table. Get returns
// common.ErrorNotFound for an absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
