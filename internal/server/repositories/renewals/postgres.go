package renewals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX, so it can be bound
// either to the pool or to a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.RenewalRecord) error {
	query := `
		INSERT INTO renewal_records (id, user_id, hashed_token)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, rec.ID, rec.UserID, rec.TokenHash).Scan(&rec.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rec.Revoked = false
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.RenewalRecord, error) {
	query := `
		SELECT id, user_id, hashed_token, revoked, created_at, revoked_at
		FROM renewal_records
		WHERE id = $1
	`
	rec := &models.RenewalRecord{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.Revoked, &rec.CreatedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		rec.RevokedAt = &revokedAt.Time
	}
	return rec, nil
}

func (r *PostgresRepository) MarkRevoked(ctx context.Context, id string) error {
	query := `
		UPDATE renewal_records
		SET revoked = TRUE, revoked_at = NOW()
		WHERE id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Lost the race or never existed; tell the two apart for the caller.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM renewal_records WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return common.ErrorNotFound
	}
	return common.ErrAlreadyRevoked
}

func (r *PostgresRepository) MarkAllRevokedForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE renewal_records
		SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
