package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyEmail        = "email"
)

// TokenCache persists the current pair in the metadata table. It satisfies
// client.TokenStore.
type TokenCache struct {
	db *sql.DB
}

func NewTokenCache(db *sql.DB) *TokenCache {
	return &TokenCache{db: db}
}

func (c *TokenCache) Load(ctx context.Context) (string, string, error) {
	repo := metadata.NewSQLiteRepository(c.db)

	access, err := getString(ctx, repo, keyAccessToken)
	if err != nil {
		return "", "", err
	}
	refresh, err := getString(ctx, repo, keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Save replaces both tokens in one transaction so a crash never leaves a
// half-rotated pair behind.
func (c *TokenCache) Save(ctx context.Context, access, refresh string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, []byte(access)); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, []byte(refresh))
	})
}

func (c *TokenCache) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(c.db).Delete(ctx, keyAccessToken, keyRefreshToken)
}

// Email returns the address of the last successful login, or "".
func (c *TokenCache) Email(ctx context.Context) (string, error) {
	return getString(ctx, metadata.NewSQLiteRepository(c.db), keyEmail)
}

func (c *TokenCache) SetEmail(ctx context.Context, email string) error {
	return metadata.NewSQLiteRepository(c.db).Set(ctx, keyEmail, []byte(email))
}

// Wipe drops everything the CLI keeps locally.
func (c *TokenCache) Wipe(ctx context.Context) error {
	return metadata.NewSQLiteRepository(c.db).Clear(ctx)
}

func getString(ctx context.Context, repo metadata.Repository, key string) (string, error) {
	v, err := repo.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
