package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/vcfbot/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	// postgres in compose often starts after the bot
	readyTimeout  = 30 * time.Second
	readyInterval = 2 * time.Second
)

// Connect opens the configured database, waits for a postgres server to
// accept connections and sizes the pool.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	attrs := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("target", target(cfg)),
	}
	if cfg.Driver == DriverPostgres {
		attrs = append(attrs, slog.String("host", cfg.Host), slog.String("port", cfg.Port))
	}

	start := time.Now()
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fail(ctx, "db.connect", err, attrs)
	}
	wait := connectTimeout
	if cfg.Driver == DriverPostgres {
		wait = readyTimeout
	}
	if err := WaitReady(ctx, db, wait, readyInterval); err != nil {
		_ = db.Close()
		return nil, fail(ctx, "db.ping", err, attrs)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db.connect", append(attrs,
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)...)
	return db, nil
}

// WaitReady pings db every interval until it answers or timeout passes.
func WaitReady(ctx context.Context, db *sqlx.DB, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-tick.C:
		}
	}
}

func fail(ctx context.Context, event string, err error, attrs []slog.Attr) error {
	logger.DB.LogAttrs(ctx, slog.LevelError, event, append(attrs, slog.String("err", err.Error()))...)
	return fmt.Errorf("%s: %w", event, err)
}

func target(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}
