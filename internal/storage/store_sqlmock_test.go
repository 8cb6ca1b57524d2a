package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vcfbot/internal/plan"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRedeemKeyRollsBackOnExpiryFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT key, days, active FROM keys WHERE key = \?`).
		WithArgs("K1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "days", "active"}).AddRow("K1", 7, true))
	mock.ExpectQuery(`SELECT user_id, username, plan_expiry, banned FROM users WHERE user_id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "plan_expiry", "banned"}).
			AddRow(int64(5), "bob", nil, false))
	mock.ExpectExec(`UPDATE keys SET active = FALSE WHERE key = \? AND active = TRUE`).
		WithArgs("K1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET plan_expiry = \? WHERE user_id = \?`).
		WithArgs(sqlmock.AnyArg(), int64(5)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.RedeemKey(context.Background(), 5, "K1", testNow, plan.PolicyOverwrite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemKeyLosesRace(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT key, days, active FROM keys`).
		WithArgs("K1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "days", "active"}).AddRow("K1", 7, true))
	mock.ExpectQuery(`SELECT user_id, username, plan_expiry, banned FROM users`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "plan_expiry", "banned"}).
			AddRow(int64(5), nil, nil, false))
	mock.ExpectExec(`UPDATE keys SET active = FALSE`).
		WithArgs("K1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.RedeemKey(context.Background(), 5, "K1", testNow, plan.PolicyOverwrite)
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsWrapsError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).WillReturnError(errors.New("boom"))

	_, err := s.Stats(context.Background(), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user stats: boom")
}
