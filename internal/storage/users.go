package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/vcfbot/core/database"
)

// EnsureUser inserts the user if absent and refreshes the stored username otherwise.
// It reports whether a new row was created.
func (s *Store) EnsureUser(ctx context.Context, userID int64, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO users (user_id, username, banned) VALUES (?, ?, FALSE)
		 ON CONFLICT (user_id) DO NOTHING`),
		userID, nullString(username))
	if err != nil {
		return false, fmt.Errorf("insert user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if username == "" {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET username = ? WHERE user_id = ?`), username, userID); err != nil {
		return false, fmt.Errorf("refresh username %d: %w", userID, err)
	}
	return false, nil
}

// GetUserByTelegramID loads a user row or returns ErrNotFound.
func (s *Store) GetUserByTelegramID(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(
		`SELECT user_id, username, plan_expiry, banned FROM users WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

// ToggleBan flips the banned flag and returns the new value.
func (s *Store) ToggleBan(ctx context.Context, userID int64) (bool, error) {
	var banned bool
	err := coredatabase.WithTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		var current bool
		err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT banned FROM users WHERE user_id = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select ban flag: %w", err)
		}
		banned = !current
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET banned = ? WHERE user_id = ?`), banned, userID); err != nil {
			return fmt.Errorf("update ban flag: %w", err)
		}
		return nil
	})
	return banned, err
}

// Stats counts all users, users that ever had a plan, users with a plan still running at now,
// and banned users.
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, s.q(
		`SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN plan_expiry IS NOT NULL THEN 1 ELSE 0 END), 0) AS with_plan,
			COALESCE(SUM(CASE WHEN plan_expiry >= ? THEN 1 ELSE 0 END), 0) AS active_plan,
			COALESCE(SUM(CASE WHEN banned THEN 1 ELSE 0 END), 0) AS banned
		 FROM users`), now.UTC())
	if err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

// ListRecipients returns the ids of every non-banned user in ascending order.
func (s *Store) ListRecipients(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, s.q(`SELECT user_id FROM users WHERE banned = FALSE ORDER BY user_id`)); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return ids, nil
}
