// Package storage persists users and subscription keys through sqlx.
// Queries are written with ? placeholders and rebound for the active driver.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vcfbot/internal/plan"
)

var (
	// ErrNotFound is returned when a user or key row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidKey means the redeemed token does not exist.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrKeyAlreadyUsed means the token exists but was redeemed or disabled.
	ErrKeyAlreadyUsed = errors.New("storage: key already used or disabled")
	// ErrNotRegistered means the redeeming user has no row yet.
	ErrNotRegistered = errors.New("storage: user not registered")
)

// User mirrors a users row.
type User struct {
	UserID     int64          `db:"user_id"`
	Username   sql.NullString `db:"username"`
	PlanExpiry *time.Time     `db:"plan_expiry"`
	Banned     bool           `db:"banned"`
}

// Subject adapts the row for plan.Evaluate; a nil user yields nil.
func (u *User) Subject() *plan.Subject {
	if u == nil {
		return nil
	}
	return &plan.Subject{Expiry: u.PlanExpiry, Banned: u.Banned}
}

// Handle returns the username or an empty string.
func (u *User) Handle() string {
	if u == nil || !u.Username.Valid {
		return ""
	}
	return u.Username.String
}

// Key mirrors a keys row.
type Key struct {
	Key    string `db:"key"`
	Days   int    `db:"days"`
	Active bool   `db:"active"`
}

// Stats aggregates the users table for the admin console.
type Stats struct {
	Total      int `db:"total"`
	WithPlan   int `db:"with_plan"`
	ActivePlan int `db:"active_plan"`
	Banned     int `db:"banned"`
}

// Store is the sqlx-backed repository for users and keys.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for seeders and health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
