package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectRenewalQ = `SELECT\s+id,\s*user_id,\s*hashed_token,\s*revoked,\s*created_at,\s*revoked_at\s+FROM\s+renewal_records`
	selectUserQ    = `SELECT\s+id,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+id`
	revokeRenewalQ = `UPDATE\s+renewal_records\s+SET\s+revoked\s*=\s*TRUE`
	insertRenewalQ = `INSERT\s+INTO\s+renewal_records`
)

func newPostgresRotateEnv(t *testing.T) (*AuthService, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	codec := newCodec(t, time.Now)
	svc, err := NewAuthService(repomanager.NewPostgresRepositoryManager(db), codec, testConfig(), logging.Nop{}, metrics.NewNop())
	require.NoError(t, err)

	token, err := codec.Issue("u1", "r1", tokens.KindRenewal, time.Hour)
	require.NoError(t, err)

	mock.ExpectQuery(selectRenewalQ).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hashed_token", "revoked", "created_at", "revoked_at"}).
			AddRow("r1", "u1", cryptox.HashToken(token), false, time.Now(), nil))
	mock.ExpectQuery(selectUserQ).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u1", "u1@example.com", "x", time.Now()))

	return svc, mock, token
}

func TestRotate_Postgres_CommitsRevokeAndCreate(t *testing.T) {
	svc, mock, token := newPostgresRotateEnv(t)

	mock.ExpectBegin()
	mock.ExpectExec(revokeRenewalQ).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertRenewalQ).
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	pair, err := svc.Rotate(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_Postgres_LostRaceIsUnauthorized(t *testing.T) {
	svc, mock, token := newPostgresRotateEnv(t)

	mock.ExpectBegin()
	mock.ExpectExec(revokeRenewalQ).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT\s+EXISTS`).WithArgs("r1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_Postgres_InsertFailureRollsBack(t *testing.T) {
	svc, mock, token := newPostgresRotateEnv(t)

	mock.ExpectBegin()
	mock.ExpectExec(revokeRenewalQ).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertRenewalQ).
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_Postgres_CommitFailureIsInternal(t *testing.T) {
	svc, mock, token := newPostgresRotateEnv(t)

	mock.ExpectBegin()
	mock.ExpectExec(revokeRenewalQ).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertRenewalQ).
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	_, err := svc.Rotate(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrorInternal)
}
