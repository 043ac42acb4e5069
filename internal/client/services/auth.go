// Package services contains application services for the gophauth CLI.
// This file defines the session service: register, login, rotation, profile
// lookup, password change and logout, with the pair cached locally.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// AuthService defines the session operations of the CLI. All methods honor
// context cancellation.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*client.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error
	Logout(ctx context.Context) (int64, error)
	Status(ctx context.Context) (email string, loggedIn bool, err error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	cache  *TokenCache
}

// NewAuthService binds the service to an API client and the local cache the
// client was created with.
func NewAuthService(c client.Client, cache *TokenCache) AuthService {
	return &authService{client: c, cache: cache}
}

func (a *authService) Register(ctx context.Context, email string, password []byte) error {
	defer common.WipeByteArray(password)

	email = strings.TrimSpace(email)
	if err := a.client.Register(ctx, email, string(password)); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return a.cache.SetEmail(ctx, email)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) error {
	defer common.WipeByteArray(password)

	email = strings.TrimSpace(email)
	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return a.cache.SetEmail(ctx, email)
}

func (a *authService) Refresh(ctx context.Context) error {
	return a.client.Refresh(ctx)
}

func (a *authService) Me(ctx context.Context) (*client.User, error) {
	return a.client.Me(ctx)
}

func (a *authService) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	defer common.WipeByteArray(oldPassword)
	defer common.WipeByteArray(newPassword)

	return a.client.ChangePassword(ctx, string(oldPassword), string(newPassword))
}

// Logout revokes the server-side chains and wipes the local cache. A session
// the server already refuses is still wiped locally.
func (a *authService) Logout(ctx context.Context) (int64, error) {
	n, err := a.client.Logout(ctx)
	if err != nil && !errors.Is(err, client.ErrNotLoggedIn) && !isSessionGone(err) {
		return 0, err
	}
	if werr := a.cache.Wipe(ctx); werr != nil {
		return n, werr
	}
	return n, nil
}

func (a *authService) Status(ctx context.Context) (string, bool, error) {
	email, err := a.cache.Email(ctx)
	if err != nil {
		return "", false, err
	}
	access, _, err := a.cache.Load(ctx)
	if err != nil {
		return "", false, err
	}
	return email, access != "", nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func isSessionGone(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrExpired) ||
		errors.Is(err, common.ErrMalformed)
}
