package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errPasswordMismatch = errors.New("passwords do not match")

// Register prompts for an e-mail and a password (typed twice) and creates
// the account. The new pair is cached, so the user is logged in afterwards.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errPasswordMismatch
	}

	if err := a.authService.Register(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered and logged in as", email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return common.ErrInvalidCredentials
		}
		return err
	}
	fmt.Fprintln(a.out, "Logged in as", email)
	return nil
}

// Refresh rotates the cached pair right away.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.authService.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\ncreated: %s\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := getPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	confirm, err := getPassword(a.out, "Repeat new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(newPassword, confirm) {
		return errPasswordMismatch
	}

	if err := a.authService.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed, other sessions were signed out")
	return nil
}

// Logout revokes every session of the user and clears the local cache.
func (a *App) Logout(ctx context.Context) error {
	n, err := a.authService.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged out (%d sessions revoked)\n", n)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	email, loggedIn, err := a.authService.Status(ctx)
	if err != nil {
		return err
	}
	if !loggedIn {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintln(a.out, "Logged in as", email)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.authService.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Server is reachable")
	return nil
}

// DescribeError turns service errors into short messages for the terminal.
func DescribeError(err error) string {
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in, use 'login' first"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid e-mail or password"
	case errors.Is(err, common.ErrExpired):
		return "session expired, please log in again"
	case errors.Is(err, common.ErrMalformed), errors.Is(err, common.ErrorUnauthorized):
		return "unauthorized, please log in again"
	case errors.Is(err, common.ErrAlreadyExists):
		return "this e-mail is already registered"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	default:
		return err.Error()
	}
}
