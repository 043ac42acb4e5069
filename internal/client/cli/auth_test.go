package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu sync.Mutex

	email    string
	password string
	loggedIn bool

	regErr     error
	loginErr   error
	refreshErr error
	meErr      error
	changeErr  error
	logoutErr  error
	pingErr    error

	oldPassword string
	newPassword string
	refreshes   int
	pings       int
}

func (f *fakeAuth) Register(_ context.Context, email string, password []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.regErr != nil {
		return f.regErr
	}
	f.email, f.password, f.loggedIn = email, string(password), true
	return nil
}

func (f *fakeAuth) Login(_ context.Context, email string, password []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.email, f.password, f.loggedIn = email, string(password), true
	return nil
}

func (f *fakeAuth) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

func (f *fakeAuth) Me(context.Context) (*client.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &client.User{ID: "u1", Email: f.email, CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, oldPassword, newPassword []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldPassword, f.newPassword = string(oldPassword), string(newPassword)
	return f.changeErr
}

func (f *fakeAuth) Logout(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logoutErr != nil {
		return 0, f.logoutErr
	}
	f.loggedIn = false
	return 3, nil
}

func (f *fakeAuth) Status(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggedIn {
		return "", false, nil
	}
	return f.email, true, nil
}

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.OnlineCheckInterval = 10 * time.Millisecond
	return c
}

func newTestApp(input string) (*App, *fakeAuth, *bytes.Buffer) {
	fa := &fakeAuth{}
	out := &bytes.Buffer{}
	return newApp(testConfig(), fa, bufio.NewReader(strings.NewReader(input)), out), fa, out
}

// stubInputs replaces the prompts: text answers come from email, password
// prompts are answered from passwords in order.
func stubInputs(t *testing.T, email string, passwords ...string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return email, nil }
	next := 0
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if next >= len(passwords) {
			return nil, io.EOF
		}
		pw := []byte(passwords[next])
		next++
		return pw, nil
	}
}

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, fa, out := newTestApp("")
		stubInputs(t, "a@example.com", "hunter2222", "hunter2222")

		require.NoError(t, app.Register(context.Background()))
		assert.Equal(t, "a@example.com", fa.email)
		assert.Equal(t, "hunter2222", fa.password)
		assert.Contains(t, out.String(), "Registered and logged in as a@example.com")
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		app, fa, _ := newTestApp("")
		stubInputs(t, "a@example.com", "hunter2222", "hunter3333")

		assert.ErrorIs(t, app.Register(context.Background()), errPasswordMismatch)
		assert.Empty(t, fa.email)
	})

	t.Run("service error", func(t *testing.T) {
		app, fa, _ := newTestApp("")
		fa.regErr = common.ErrAlreadyExists
		stubInputs(t, "a@example.com", "hunter2222", "hunter2222")

		assert.ErrorIs(t, app.Register(context.Background()), common.ErrAlreadyExists)
	})

	t.Run("password prompt fails", func(t *testing.T) {
		app, _, _ := newTestApp("")
		stubInputs(t, "a@example.com")

		assert.ErrorIs(t, app.Register(context.Background()), io.EOF)
	})
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, fa, out := newTestApp("")
		stubInputs(t, "a@example.com", "hunter2222")

		require.NoError(t, app.Login(context.Background()))
		assert.True(t, fa.loggedIn)
		assert.Contains(t, out.String(), "Logged in as a@example.com")
	})

	t.Run("rejected credentials", func(t *testing.T) {
		app, fa, _ := newTestApp("")
		fa.loginErr = errors.Join(errors.New("login error"), common.ErrorUnauthorized)
		stubInputs(t, "a@example.com", "wrong")

		err := app.Login(context.Background())
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		assert.Equal(t, "invalid e-mail or password", DescribeError(err))
	})

	t.Run("server down", func(t *testing.T) {
		app, fa, _ := newTestApp("")
		fa.loginErr = client.ErrUnavailable
		stubInputs(t, "a@example.com", "hunter2222")

		assert.ErrorIs(t, app.Login(context.Background()), client.ErrUnavailable)
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, fa, out := newTestApp("")
		stubInputs(t, "", "old-password", "new-password", "new-password")

		require.NoError(t, app.ChangePassword(context.Background()))
		assert.Equal(t, "old-password", fa.oldPassword)
		assert.Equal(t, "new-password", fa.newPassword)
		assert.Contains(t, out.String(), "Password changed")
	})

	t.Run("mismatch", func(t *testing.T) {
		app, fa, _ := newTestApp("")
		stubInputs(t, "", "old-password", "new-password", "other")

		assert.ErrorIs(t, app.ChangePassword(context.Background()), errPasswordMismatch)
		assert.Empty(t, fa.newPassword)
	})
}

func TestMeRefreshLogoutStatusPing(t *testing.T) {
	app, fa, out := newTestApp("")
	fa.email, fa.loggedIn = "a@example.com", true
	ctx := context.Background()

	require.NoError(t, app.Me(ctx))
	assert.Contains(t, out.String(), "email:   a@example.com")
	assert.Contains(t, out.String(), "created: 2024-05-01 10:00:00")

	require.NoError(t, app.Refresh(ctx))
	assert.Equal(t, 1, fa.refreshes)

	require.NoError(t, app.Status(ctx))
	assert.Contains(t, out.String(), "Logged in as a@example.com")

	require.NoError(t, app.Ping(ctx))
	assert.Contains(t, out.String(), "Server is reachable")

	require.NoError(t, app.Logout(ctx))
	assert.Contains(t, out.String(), "Logged out (3 sessions revoked)")

	out.Reset()
	require.NoError(t, app.Status(ctx))
	assert.Equal(t, "Not logged in\n", out.String())

	fa.meErr = client.ErrNotLoggedIn
	assert.ErrorIs(t, app.Me(ctx), client.ErrNotLoggedIn)
	fa.refreshErr = common.ErrExpired
	assert.ErrorIs(t, app.Refresh(ctx), common.ErrExpired)
	fa.logoutErr = client.ErrUnavailable
	assert.ErrorIs(t, app.Logout(ctx), client.ErrUnavailable)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{client.ErrNotLoggedIn, "not logged in, use 'login' first"},
		{common.ErrExpired, "session expired, please log in again"},
		{common.ErrMalformed, "unauthorized, please log in again"},
		{common.ErrorUnauthorized, "unauthorized, please log in again"},
		{common.ErrAlreadyExists, "this e-mail is already registered"},
		{client.ErrUnavailable, "server unavailable"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DescribeError(tt.err))
	}
}
