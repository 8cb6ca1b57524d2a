package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/vcfbot/core/database"
	"github.com/m3rciful/vcfbot/internal/plan"
)

// Redemption describes a successfully consumed key.
type Redemption struct {
	Key    string
	Days   int
	Expiry time.Time
}

// CreateKey stores an active key, replacing any existing row with the same value.
func (s *Store) CreateKey(ctx context.Context, key string, days int) error {
	if _, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO keys (key, days, active) VALUES (?, ?, TRUE)
		 ON CONFLICT (key) DO UPDATE SET days = excluded.days, active = TRUE`),
		key, days); err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

// GetKey loads a key row or returns ErrNotFound.
func (s *Store) GetKey(ctx context.Context, key string) (*Key, error) {
	var k Key
	err := s.db.GetContext(ctx, &k, s.q(`SELECT key, days, active FROM keys WHERE key = ?`), strings.TrimSpace(key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	return &k, nil
}

// DisableKey deactivates key; it returns ErrNotFound when no such key exists.
func (s *Store) DisableKey(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE keys SET active = FALSE WHERE key = ?`), strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("disable key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RedeemKey consumes token for userID in a single transaction: the key is deactivated and the
// user's expiry updated together, or neither happens. A concurrent redeem of the same token
// loses the guarded UPDATE and gets ErrKeyAlreadyUsed.
func (s *Store) RedeemKey(ctx context.Context, userID int64, token string, now time.Time, policy plan.RedeemPolicy) (Redemption, error) {
	token = strings.TrimSpace(token)
	var out Redemption
	err := coredatabase.WithTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		var k Key
		err := tx.GetContext(ctx, &k, tx.Rebind(`SELECT key, days, active FROM keys WHERE key = ?`), token)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidKey
		}
		if err != nil {
			return fmt.Errorf("select key: %w", err)
		}
		if !k.Active {
			return ErrKeyAlreadyUsed
		}

		var u User
		err = tx.GetContext(ctx, &u, tx.Rebind(
			`SELECT user_id, username, plan_expiry, banned FROM users WHERE user_id = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("select user: %w", err)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE keys SET active = FALSE WHERE key = ? AND active = TRUE`), token)
		if err != nil {
			return fmt.Errorf("deactivate key: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrKeyAlreadyUsed
		}

		expiry := plan.NewExpiry(policy, u.PlanExpiry, now, k.Days).UTC()
		res, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET plan_expiry = ? WHERE user_id = ?`), expiry, userID)
		if err != nil {
			return fmt.Errorf("update expiry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotRegistered
		}

		out = Redemption{Key: token, Days: k.Days, Expiry: expiry}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	return out, nil
}
