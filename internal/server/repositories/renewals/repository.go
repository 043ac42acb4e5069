// Package renewals declares the renewal record store and its PostgreSQL,
// Redis and in-memory implementations.
package renewals

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists renewal records. Every method is atomic on its own.
type Repository interface {
	// Create stores a new, non-revoked record.
	Create(ctx context.Context, rec *models.RenewalRecord) error

	// GetByID returns the record with the given id or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.RenewalRecord, error)

	// MarkRevoked flips revoked from false to true as a compare-and-set.
	// It returns common.ErrAlreadyRevoked when the record is already revoked
	// and common.ErrorNotFound when it does not exist.
	MarkRevoked(ctx context.Context, id string) error

	// MarkAllRevokedForUser revokes every outstanding record of userID in a
	// single set-based update and returns how many records changed.
	MarkAllRevokedForUser(ctx context.Context, userID string) (int64, error)
}
