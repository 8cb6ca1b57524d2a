package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vcfbot/core/logger"
)

const previewFiles = 6

// RunMigrations applies every pending up migration found at the root of
// migrations. An up-to-date schema is not an error.
func RunMigrations(ctx context.Context, db *sqlx.DB, driver string, migrations fs.FS) error {
	if db == nil || migrations == nil {
		return errors.New("run migrations: nil db or migrations")
	}
	files := upFiles(migrations)
	logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrate.resolve",
		append(fileAttrs(files), slog.String("driver", driver))...)

	m, err := newMigrator(db, driver, migrations)
	if err != nil {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "migrate.init", slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	// sqlite.Close closes the shared *sql.DB, postgres only its own conn.
	if driver == DriverPostgres {
		defer func() { _, _ = m.Close() }()
	}

	from, _, _ := m.Version()
	start := time.Now()
	err = m.Up()
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.LogAttrs(ctx, slog.LevelError, "migrate.apply",
			slog.String("err", err.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrate.applied", fileAttrs(applied)...)
	}
	logger.MIG.LogAttrs(ctx, slog.LevelInfo, "migrate.summary",
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func newMigrator(db *sqlx.DB, driver string, migrations fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	var target migratedb.Driver
	switch driver {
	case DriverPostgres:
		target, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		target, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, driver, target)
}

func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	preview, truncated := logger.SummarizeStrings(files, previewFiles)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

// upFiles lists the *.up.sql names at the root of fsys, sorted.
func upFiles(fsys fs.FS) []string {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil
	}
	slices.Sort(names)
	return names
}

func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(path.Base(name), "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files with a version in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
