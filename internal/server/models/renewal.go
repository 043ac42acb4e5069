package models

import "time"

// RenewalRecord is the persisted half of a renewal token. ID equals the
// token's jti; only the SHA-256 of the raw token is kept. Revoked only ever
// goes from false to true and records are never deleted.
type RenewalRecord struct {
	ID        string
	UserID    string
	TokenHash string
	Revoked   bool
	CreatedAt time.Time
	RevokedAt *time.Time
}
