package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/vcfbot/core/database"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Open(coredatabase.DriverSQLite, coredatabase.SQLiteDSN(":memory:"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, coredatabase.RunMigrations(context.Background(), db, coredatabase.DriverSQLite, migrations.FS))
	return New(db)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestEnsureUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.EnsureUser(ctx, 42, "alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureUser(ctx, 42, "alice_new")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.EnsureUser(ctx, 7, "")
	require.NoError(t, err)
	assert.True(t, created)

	u, err := s.GetUserByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", u.Handle())
	assert.Nil(t, u.PlanExpiry)
	assert.False(t, u.Banned)

	u, err = s.GetUserByTelegramID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "", u.Handle())

	_, err = s.GetUserByTelegramID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemKeyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.EnsureUser(ctx, 1, "bob")
	require.NoError(t, err)
	require.NoError(t, s.CreateKey(ctx, "ABCD1234", 7))

	red, err := s.RedeemKey(ctx, 1, "  ABCD1234 \n", testNow, plan.PolicyOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 7, red.Days)
	assert.True(t, red.Expiry.Equal(testNow.Add(7*24*time.Hour)))

	u, err := s.GetUserByTelegramID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.PlanExpiry)
	assert.WithinDuration(t, testNow.Add(7*24*time.Hour), *u.PlanExpiry, time.Second)

	st := plan.Evaluate(u.Subject(), testNow)
	assert.Equal(t, plan.Active, st.Kind)
	assert.Equal(t, 7, st.DaysLeft)

	_, err = s.RedeemKey(ctx, 1, "ABCD1234", testNow, plan.PolicyOverwrite)
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)

	_, err = s.RedeemKey(ctx, 1, "NOPE", testNow, plan.PolicyOverwrite)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRedeemKeyUnregisteredLeavesKeyActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateKey(ctx, "K1", 30))

	_, err := s.RedeemKey(ctx, 555, "K1", testNow, plan.PolicyOverwrite)
	assert.ErrorIs(t, err, ErrNotRegistered)

	k, err := s.GetKey(ctx, "K1")
	require.NoError(t, err)
	assert.True(t, k.Active)
}

func TestRedeemKeyPolicies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.EnsureUser(ctx, 1, "u")
	require.NoError(t, err)
	require.NoError(t, s.CreateKey(ctx, "A", 7))
	require.NoError(t, s.CreateKey(ctx, "B", 1))
	require.NoError(t, s.CreateKey(ctx, "C", 1))

	_, err = s.RedeemKey(ctx, 1, "A", testNow, plan.PolicyOverwrite)
	require.NoError(t, err)

	red, err := s.RedeemKey(ctx, 1, "B", testNow, plan.PolicyExtend)
	require.NoError(t, err)
	assert.WithinDuration(t, testNow.Add(8*24*time.Hour), red.Expiry, time.Second)

	red, err = s.RedeemKey(ctx, 1, "C", testNow, plan.PolicyOverwrite)
	require.NoError(t, err)
	assert.WithinDuration(t, testNow.Add(24*time.Hour), red.Expiry, time.Second)
}

func TestRedeemKeyConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateKey(ctx, "RACE", 7))
	for id := int64(1); id <= 8; id++ {
		_, err := s.EnsureUser(ctx, id, "")
		require.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		used    int
	)
	for id := int64(1); id <= 8; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := s.RedeemKey(ctx, id, "RACE", testNow, plan.PolicyOverwrite)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if errors.Is(err, ErrKeyAlreadyUsed) {
				used++
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assert.Equal(t, 7, used)
}

func TestCreateAndDisableKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateKey(ctx, "K", 1))
	require.NoError(t, s.DisableKey(ctx, " K "))
	k, err := s.GetKey(ctx, "K")
	require.NoError(t, err)
	assert.False(t, k.Active)

	// re-issuing the same value reactivates it with the new duration
	require.NoError(t, s.CreateKey(ctx, "K", 30))
	k, err = s.GetKey(ctx, "K")
	require.NoError(t, err)
	assert.Equal(t, Key{Key: "K", Days: 30, Active: true}, *k)

	assert.ErrorIs(t, s.DisableKey(ctx, "missing"), ErrNotFound)
	_, err = s.GetKey(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleBanStatsRecipients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_, err := s.EnsureUser(ctx, id, "")
		require.NoError(t, err)
	}
	require.NoError(t, s.CreateKey(ctx, "P", 7))
	_, err := s.RedeemKey(ctx, 2, "P", testNow.Add(-30*24*time.Hour), plan.PolicyOverwrite)
	require.NoError(t, err)
	require.NoError(t, s.CreateKey(ctx, "Q", 7))
	_, err = s.RedeemKey(ctx, 3, "Q", testNow, plan.PolicyOverwrite)
	require.NoError(t, err)

	banned, err := s.ToggleBan(ctx, 1)
	require.NoError(t, err)
	assert.True(t, banned)

	ids, err := s.ListRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)

	st, err := s.Stats(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, WithPlan: 2, ActivePlan: 1, Banned: 1}, st)

	u, err := s.GetUserByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, plan.Banned, plan.Evaluate(u.Subject(), testNow).Kind)

	banned, err = s.ToggleBan(ctx, 1)
	require.NoError(t, err)
	assert.False(t, banned)

	_, err = s.ToggleBan(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
