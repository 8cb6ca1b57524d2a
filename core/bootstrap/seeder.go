package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Seeder writes data the application expects to exist, once the schema
// is current. Seeders must be safe to run on every start.
type Seeder interface {
	Seed(ctx context.Context, db *sqlx.DB) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc func(ctx context.Context, db *sqlx.DB) error

func (f SeederFunc) Seed(ctx context.Context, db *sqlx.DB) error { return f(ctx, db) }
