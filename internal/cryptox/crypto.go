// Package cryptox holds the hashing primitives used by the auth server:
// argon2id password hashes and one-way digests of renewal tokens.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing them does not break existing hashes because
// they are encoded alongside every hash.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// ErrInvalidHash is returned when a stored password hash cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash")

// DeriveKey runs argon2id over password and salt with the given cost
// parameters.
func DeriveKey(password, salt []byte, t, m uint32, p uint8, keyLen uint32) []byte {
	return argon2.IDKey(password, salt, t, m, p, keyLen)
}

// HashPassword returns an encoded argon2id hash in the form
//
//	argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<key b64>
func HashPassword(password []byte) (string, error) {
	salt := common.GenerateRandByteArray(saltLen)
	key := DeriveKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// Comparison is constant time.
func VerifyPassword(password []byte, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	var (
		m, t uint32
		p    uint8
	)
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(want) == 0 {
		return false, ErrInvalidHash
	}

	got := DeriveKey(password, salt, t, m, p, uint32(len(want)))
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// HashToken returns the hex encoded SHA-256 digest of token. Only this
// digest is ever persisted for renewal tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// EqualHashes compares two hex digests in constant time.
func EqualHashes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
