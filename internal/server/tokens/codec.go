// Package tokens signs and verifies the two kinds of bearer tokens issued by
// the server: short-lived access tokens and long-lived renewal tokens.
//
// Both are HS256 JWTs. Each kind has its own secret and audience, so a token
// of one kind never verifies as the other. The codec does no I/O.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from renewal tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRenewal Kind = "renewal"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrWrongKind        = errors.New("wrong token kind")
)

// Config is the immutable signing configuration, loaded once at startup.
type Config struct {
	AccessSecret  []byte
	RenewalSecret []byte
	Issuer        string
}

// Claims is what a verified token proves.
type Claims struct {
	Principal string
	RenewalID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"typ"`
}

// Codec issues and verifies tokens. It is safe for concurrent use.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RenewalSecret) == 0 {
		return nil, errors.New("tokens: access and renewal secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RenewalSecret) {
		return nil, errors.New("tokens: access and renewal secrets must differ")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "gophauth"
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs a token of the given kind for principal, valid for ttl.
// Renewal tokens must carry a renewal id; access tokens must not.
func (c *Codec) Issue(principal, renewalID string, kind Kind, ttl time.Duration) (string, error) {
	if principal == "" {
		return "", errors.New("tokens: empty principal")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("tokens: invalid ttl %s", ttl)
	}
	switch kind {
	case KindRenewal:
		if renewalID == "" {
			return "", errors.New("tokens: renewal token requires an id")
		}
	case KindAccess:
		renewalID = ""
	default:
		return "", fmt.Errorf("tokens: unknown kind %q", kind)
	}

	now := c.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   principal,
			Audience:  jwt.ClaimStrings{c.audience(kind)},
			ID:        renewalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret(kind))
}

// Verify checks signature, kind and expiry of token and returns its claims.
func (c *Codec) Verify(token string, kind Kind) (*Claims, error) {
	if kind != KindAccess && kind != KindRenewal {
		return nil, fmt.Errorf("tokens: unknown kind %q", kind)
	}

	// The kind is read before the signature is checked only to classify the
	// failure; nothing from an unverified token is returned.
	unverified := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return nil, ErrInvalidSignature
	}
	if unverified.Kind != kind {
		return nil, ErrWrongKind
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret(kind), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.audience(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSignature
	}
	if kind == KindRenewal && claims.ID == "" {
		return nil, ErrInvalidSignature
	}

	return &Claims{
		Principal: claims.Subject,
		RenewalID: claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRenewal {
		return c.cfg.RenewalSecret
	}
	return c.cfg.AccessSecret
}

func (c *Codec) audience(kind Kind) string {
	return c.cfg.Issuer + "-" + string(kind)
}
