package bot

import (
	"context"
	"log/slog"
	"slices"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	"github.com/m3rciful/vcfbot/core/telegram/middleware"
	"github.com/m3rciful/vcfbot/core/telegram/router"
)

const janitorInterval = time.Minute

var _ router.Fallbacks = (*Bot)(nil)

// UnknownText answers text that matched no command and no session.
func (b *Bot) UnknownText() tele.HandlerFunc { return b.handleUnknown }

// UnknownDocument answers documents sent outside the wizard.
func (b *Bot) UnknownDocument() tele.HandlerFunc { return b.handleUnknown }

// UnknownCallback answers stale or foreign inline buttons.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return callbacks.Respond(c, textUnknown, false)
	}
}

// Availability returns the global maintenance gate.
func (b *Bot) Availability() tg.Middleware {
	return tg.Middleware{
		Name: "availability",
		Use: middleware.Availability(middleware.AvailabilityOptions{
			Open:     b.Open,
			AdminID:  b.adminID(),
			OnClosed: b.handleClosed,
		}),
	}
}

func (b *Bot) handleClosed(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Respond(c, textMaintenance, true)
	}
	return reply(c, textMaintenance)
}

// RunOptions registers every handler and returns the options for tg.RunTelegram.
func (b *Bot) RunOptions() (tg.RunOptions, error) {
	core := b.cfg.CoreConfig()
	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}

	mws := tg.DefaultMiddlewares(core, tg.ChainOptions{
		OnPanic: func(c tele.Context) error { return reply(c, textInternalError) },
		Metrics: b.metrics,
	})
	// availability runs once the update is logged and before rate limiting.
	mws = slices.Insert(mws, 2, b.Availability())

	routes := router.Routes(reg, b.sessions, b, b.adminID())

	return tg.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			router.SetMetrics(b.metrics)
			go b.sessions.RunJanitor(ctx, janitorInterval)
			if listen := core.Metrics.Listen; listen != "" {
				go func() {
					if err := b.metrics.Serve(ctx, listen, core.Metrics.Path); err != nil {
						logger.Error(ctx, "metrics", "metrics.serve_failed", slog.String("err", err.Error()))
					}
				}()
			}
			return nil
		},
	}, nil
}
