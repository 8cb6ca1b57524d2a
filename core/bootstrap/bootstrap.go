// Package bootstrap brings up the process infrastructure in order:
// logger, database, schema, seed data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
	coredatabase "github.com/m3rciful/vcfbot/core/database"
	"github.com/m3rciful/vcfbot/core/logger"
)

// Options select what Run sets up. The function fields default to the
// real implementations and exist for tests.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations holds the *.up.sql/*.down.sql files at its root.
	Migrations fs.FS
	Seeders    []Seeder

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(ctx context.Context, db *sqlx.DB, driver string, migrations fs.FS) error
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result is the infrastructure handed to the application.
type Result struct {
	DB *sqlx.DB
}

// Run initialises the logger, connects to the database, applies the
// migrations and runs the seeders. On failure the database is closed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	db, err := opts.Connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := prepare(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Result{DB: db}, nil
}

func prepare(ctx context.Context, db *sqlx.DB, opts Options) error {
	if opts.Migrations != nil {
		if err := opts.Migrate(ctx, db, opts.Database.Driver, opts.Migrations); err != nil {
			return fmt.Errorf("bootstrap: migrations: %w", err)
		}
	}
	start := time.Now()
	ran := 0
	for i, s := range opts.Seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx, db); err != nil {
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
		ran++
	}
	if ran > 0 {
		logger.SEED.LogAttrs(ctx, slog.LevelInfo, "seed.complete",
			slog.Int("count", ran),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return nil
}
