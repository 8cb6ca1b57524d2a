// Command vcfbot runs the VCF converter Telegram bot.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vcfbot/core/bootstrap"
	corecmd "github.com/m3rciful/vcfbot/core/cmd"
	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/state"
	"github.com/m3rciful/vcfbot/internal/bot"
	"github.com/m3rciful/vcfbot/internal/config"
	"github.com/m3rciful/vcfbot/internal/storage"
	"github.com/m3rciful/vcfbot/internal/storage/migrations"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			a, err := newApp(c.(*config.Config))
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

type app struct {
	db  *sqlx.DB
	bot *bot.Bot
}

func newApp(cfg *config.Config) (*app, error) {
	res, err := bootstrap.Run(context.Background(), bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
		Seeders:    []bootstrap.Seeder{adminSeeder(cfg.Telegram.AdminID)},
	})
	if err != nil {
		return nil, err
	}

	b := bot.New(bot.Deps{
		Config:   cfg,
		Store:    storage.New(res.DB),
		Sessions: state.NewMemoryManager(cfg.SessionTTL()),
	})
	return &app{db: res.DB, bot: b}, nil
}

// adminSeeder registers the admin so the console works before the first /start.
func adminSeeder(adminID int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		if _, err := storage.New(db).EnsureUser(ctx, adminID, ""); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		return nil
	})
}

func (a *app) TelegramRunOptions() (tg.RunOptions, error) {
	opts, err := a.bot.RunOptions()
	if err != nil {
		return tg.RunOptions{}, err
	}
	opts.OnStop = func(context.Context, tg.Runtime) error {
		return a.db.Close()
	}
	return opts, nil
}
