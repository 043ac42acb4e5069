// Package services contains server-side business logic. This file implements
// AuthService: paired credential issuance, renewal token rotation with replay
// detection, bulk revocation, and the account operations built on them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/renewals"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived renewal token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Pair origins reported to metrics.
const (
	originRegister = "register"
	originLogin    = "login"
	originRotate   = "rotate"
	originPassword = "password"
)

// dummyHash is verified against when a login names an unknown e-mail, so the
// response time does not reveal whether the account exists.
var dummyHash, _ = cryptox.HashPassword([]byte("gophauth-dummy-password"))

type AuthService struct {
	repomanager repomanager.RepositoryManager
	codec       *tokens.Codec
	log         logging.Logger
	metrics     *metrics.Metrics

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService wires the service. Token lifetimes come from cfg and must be
// positive.
func NewAuthService(m repomanager.RepositoryManager, codec *tokens.Codec, cfg *config.Config, log logging.Logger, mx *metrics.Metrics) (*AuthService, error) {
	if cfg.AccessTokenValidityDuration <= 0 || cfg.RefreshTokenValidityDuration <= 0 {
		return nil, errors.New("token validity durations must be positive")
	}
	if log == nil {
		log = logging.Nop{}
	}
	if mx == nil {
		mx = metrics.NewNop()
	}
	return &AuthService{
		repomanager:                  m,
		codec:                        codec,
		log:                          log.With("component", "auth"),
		metrics:                      mx,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}, nil
}

// IssuePair mints a fresh access/renewal pair for userID and persists the
// renewal record through repo. It consults no prior state. Passing the
// transaction-bound repository lets rotation issue inside its unit of work.
func (s *AuthService) IssuePair(ctx context.Context, repo renewals.Repository, userID string) (*TokenPair, error) {
	renewalID := uuid.NewString()

	refresh, err := s.codec.Issue(userID, renewalID, tokens.KindRenewal, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, internal(err)
	}

	rec := &models.RenewalRecord{
		ID:        renewalID,
		UserID:    userID,
		TokenHash: cryptox.HashToken(refresh),
	}
	if err := repo.Create(ctx, rec); err != nil {
		return nil, internal(err)
	}

	access, err := s.codec.Issue(userID, "", tokens.KindAccess, s.accessTokenValidityDuration)
	if err != nil {
		return nil, internal(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate redeems a renewal token for a new pair. The presented token's record
// is retired and the new one created in the same unit of work; a token that
// was already redeemed or revoked is rejected with common.ErrorUnauthorized.
func (s *AuthService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, tokens.KindRenewal)
	if err != nil {
		return nil, s.reject(ctx, "", tokenError(err))
	}

	rec, err := s.repomanager.Renewals().GetByID(ctx, claims.RenewalID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.reject(ctx, claims.Principal, common.ErrorUnauthorized)
		}
		return nil, s.reject(ctx, claims.Principal, internal(err))
	}
	if rec.Revoked {
		return nil, s.reject(ctx, claims.Principal, common.ErrorUnauthorized)
	}
	if !cryptox.EqualHashes(cryptox.HashToken(refreshToken), rec.TokenHash) {
		return nil, s.reject(ctx, claims.Principal, common.ErrorUnauthorized)
	}
	if rec.UserID != claims.Principal {
		return nil, s.reject(ctx, claims.Principal, common.ErrorUnauthorized)
	}

	if _, err := s.repomanager.Users().GetByID(ctx, rec.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.reject(ctx, rec.UserID, common.ErrorUnauthorized)
		}
		return nil, s.reject(ctx, rec.UserID, internal(err))
	}

	var pair *TokenPair
	err = s.repomanager.InTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Renewals.MarkRevoked(ctx, rec.ID); err != nil {
			if errors.Is(err, common.ErrAlreadyRevoked) || errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return internal(err)
		}
		var issueErr error
		pair, issueErr = s.IssuePair(ctx, repos.Renewals, rec.UserID)
		return issueErr
	})
	if err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) {
			err = internal(err)
		}
		return nil, s.reject(ctx, rec.UserID, err)
	}

	s.metrics.PairsIssued.WithLabelValues(originRotate).Inc()
	s.log.Debug(ctx, "renewal token rotated", "user_id", rec.UserID)
	return pair, nil
}

// RevokeAll retires every outstanding renewal record of userID in one bulk
// update and returns how many changed. Calling it again is a no-op.
// Access tokens already handed out stay valid until they expire.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repomanager.Renewals().MarkAllRevokedForUser(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "bulk revocation failed", "user_id", userID, "error", err)
		return 0, internal(err)
	}
	s.metrics.RecordsRevoked.Add(float64(n))
	s.log.Info(ctx, "renewal records revoked", "user_id", userID, "count", n)
	return n, nil
}

// Register creates a principal and returns its first credential pair. The
// user row and the renewal record are written in the same unit of work.
func (s *AuthService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrBadRequest
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, internal(err)
	}
	user := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash}

	var pair *TokenPair
	err = s.repomanager.InTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if _, err := repos.Users.Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return err
			}
			return internal(err)
		}
		var issueErr error
		pair, issueErr = s.IssuePair(ctx, repos.Renewals, user.ID)
		return issueErr
	})
	if err != nil {
		if !errors.Is(err, common.ErrAlreadyExists) {
			s.log.Error(ctx, "registration failed", "error", err)
			err = internal(err)
		}
		return nil, err
	}

	s.metrics.PairsIssued.WithLabelValues(originRegister).Inc()
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return pair, nil
}

// Login checks email and password and issues a new pair. Unknown e-mail and
// wrong password both yield common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.repomanager.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword([]byte(password), dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, internal(err)
	}

	ok, err := cryptox.VerifyPassword([]byte(password), user.PasswordHash)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		s.log.Warn(ctx, "login rejected", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.IssuePair(ctx, s.repomanager.Renewals(), user.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.PairsIssued.WithLabelValues(originLogin).Inc()
	return pair, nil
}

// ChangePassword replaces the password of userID after checking the current
// one, revokes every renewal record of the user in the same unit of work and
// returns a fresh pair for the caller.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (*TokenPair, error) {
	if oldPassword == "" || newPassword == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := cryptox.VerifyPassword([]byte(oldPassword), user.PasswordHash)
	if err != nil {
		return nil, internal(err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword([]byte(newPassword))
	if err != nil {
		return nil, internal(err)
	}

	var (
		pair    *TokenPair
		revoked int64
	)
	err = s.repomanager.InTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users.UpdatePassword(ctx, userID, hash); err != nil {
			return internal(err)
		}
		n, err := repos.Renewals.MarkAllRevokedForUser(ctx, userID)
		if err != nil {
			return internal(err)
		}
		revoked = n
		var issueErr error
		pair, issueErr = s.IssuePair(ctx, repos.Renewals, userID)
		return issueErr
	})
	if err != nil {
		s.log.Error(ctx, "password change failed", "user_id", userID, "error", err)
		return nil, internal(err)
	}

	s.metrics.RecordsRevoked.Add(float64(revoked))
	s.metrics.PairsIssued.WithLabelValues(originPassword).Inc()
	s.log.Info(ctx, "password changed", "user_id", userID, "revoked", revoked)
	return pair, nil
}

// Authenticate verifies an access token and returns its principal.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (string, error) {
	claims, err := s.codec.Verify(accessToken, tokens.KindAccess)
	if err != nil {
		return "", tokenError(err)
	}
	return claims.Principal, nil
}

// GetUser returns the principal with the given id or common.ErrorNotFound.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, internal(err)
	}
	return user, nil
}

// EmailExists reports whether an account is registered under email.
func (s *AuthService) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.repomanager.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, internal(err)
	}
	return true, nil
}

// --- helpers below ---

// reject records a failed rotation and returns err unchanged.
func (s *AuthService) reject(ctx context.Context, userID string, err error) error {
	reason := common.Category(err)
	s.metrics.RotationsRejected.WithLabelValues(reason).Inc()
	if reason == "internal" {
		s.log.Error(ctx, "rotation failed", "user_id", userID, "error", err)
	} else {
		s.log.Warn(ctx, "rotation rejected", "user_id", userID, "reason", reason)
	}
	return err
}

// tokenError maps codec failures onto the public error taxonomy.
func tokenError(err error) error {
	if errors.Is(err, tokens.ErrExpired) {
		return common.ErrExpired
	}
	return common.ErrMalformed
}

// internal wraps a store or codec failure as common.ErrorInternal, keeping
// the cause in the message only.
func internal(err error) error {
	if errors.Is(err, common.ErrorInternal) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
