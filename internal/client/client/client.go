package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/sync/singleflight"
)

// Client is the API contract the CLI talks to.
type Client interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) error
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	Logout(ctx context.Context) (int64, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	Ping(ctx context.Context) error
}

// TokenStore keeps the current token pair between CLI runs. Load returns
// empty strings when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (access, refresh string, err error)
	Save(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPClient implements Client over the JSON API. Requests that need an
// access token are retried once after a rotation when the server answers
// with code "expired".
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	rotate  singleflight.Group
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenStore) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) error {
	return c.obtainPair(ctx, "/api/v1/auth/register", map[string]string{"email": email, "password": password})
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) error {
	return c.obtainPair(ctx, "/api/v1/auth/login", map[string]string{"email": email, "password": password})
}

func (c *HTTPClient) obtainPair(ctx context.Context, path string, body any) error {
	var pair tokenPair
	if err := c.do(ctx, http.MethodPost, path, "", body, &pair); err != nil {
		return err
	}
	return c.tokens.Save(ctx, pair.AccessToken, pair.RefreshToken)
}

// Refresh exchanges the cached renewal token for a new pair. When the server
// rejects the token the cache is cleared, the chain is dead either way.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	_, refresh, err := c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrNotLoggedIn
	}

	var pair tokenPair
	err = c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": refresh}, &pair)
	if err != nil {
		if isTokenRejection(err) {
			if cerr := c.tokens.Clear(ctx); cerr != nil {
				return errors.Join(err, cerr)
			}
		}
		return err
	}
	return c.tokens.Save(ctx, pair.AccessToken, pair.RefreshToken)
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doAuthorized(ctx, http.MethodGet, "/api/v1/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout revokes every renewal record of the caller and drops the local pair.
func (c *HTTPClient) Logout(ctx context.Context) (int64, error) {
	var resp struct {
		Revoked int64 `json:"revoked"`
	}
	if err := c.doAuthorized(ctx, http.MethodPost, "/api/v1/auth/logout", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Revoked, c.tokens.Clear(ctx)
}

func (c *HTTPClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	var pair tokenPair
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	if err := c.doAuthorized(ctx, http.MethodPost, "/api/v1/auth/password", body, &pair); err != nil {
		return err
	}
	return c.tokens.Save(ctx, pair.AccessToken, pair.RefreshToken)
}

func (c *HTTPClient) EmailExists(ctx context.Context, email string) (bool, error) {
	var resp struct {
		EmailExist bool `json:"emailExist"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/email/"+url.PathEscape(email), "", nil, &resp); err != nil {
		return false, err
	}
	return resp.EmailExist, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *HTTPClient) doAuthorized(ctx context.Context, method, path string, body, out any) error {
	access, _, err := c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if access == "" {
		return ErrNotLoggedIn
	}

	err = c.do(ctx, method, path, access, body, out)
	if !errors.Is(err, common.ErrExpired) {
		return err
	}

	if err := c.rotateOnce(ctx, access); err != nil {
		return err
	}
	access, _, err = c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, access, body, out)
}

// rotateOnce makes concurrent callers that saw the same expired access token
// share a single rotation. A caller arriving after the pair has already
// changed skips the call entirely.
func (c *HTTPClient) rotateOnce(ctx context.Context, staleAccess string) error {
	_, err, _ := c.rotate.Do(staleAccess, func() (any, error) {
		current, _, err := c.tokens.Load(ctx)
		if err != nil {
			return nil, err
		}
		if current != staleAccess {
			return nil, nil
		}
		return nil, c.Refresh(ctx)
	})
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path, access string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return mapError(resp.StatusCode, eb.Code, eb.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrExpired) ||
		errors.Is(err, common.ErrMalformed)
}
