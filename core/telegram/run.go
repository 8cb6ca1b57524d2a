package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/core/telegram/sender"
)

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (a command string or one of
// the tele.On* constants).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describe the bot RunTelegram assembles.
type RunOptions struct {
	Config      *coreconfig.Config
	Registry    *Registry
	Middlewares []Middleware
	Routes      []Route

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *sender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, installs middlewares and routes, and serves
// updates until ctx is cancelled. Cancellation is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	started := time.Now()
	poller, modeAttrs := buildPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(ClientOptions{
			MaxRetries: cfg.Sender.MaxRetries,
			Backoff:    time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
		}),
		OnError: logHandlerError,
	})
	if err != nil {
		return fmt.Errorf("telegram: init bot: %w", err)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "mode",
		append(modeAttrs, slog.Duration("duration", logger.RoundMS(time.Since(started))))...)

	if _, polling := poller.(*tele.LongPoller); polling {
		// A webhook left over from a previous deploy makes getUpdates fail.
		if err := bot.RemoveWebhook(false); err != nil {
			logger.TG.Warn("delete webhook", slog.String("event", "delete_webhook"), slog.String("err", sender.Redact(err)))
		}
	}

	disp := sender.NewDispatcher(DispatcherOptionsFrom(cfg.Sender))
	tghelpers.SetDispatcher(disp)
	defer func() {
		disp.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, reg)

	rt := Runtime{Bot: bot, Dispatcher: disp, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	serve(ctx, bot)

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	return nil
}

// serve runs the poller until ctx is done or the bot stops by itself.
func serve(ctx context.Context, bot *tele.Bot) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
	}
}

func buildPoller(cfg *coreconfig.Config) (tele.Poller, []slog.Attr) {
	if strings.EqualFold(strings.TrimSpace(cfg.Telegram.RunMode), coreconfig.RunModeWebhook) {
		wh := &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
		return wh, []slog.Attr{
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		}
	}
	timeout := cfg.Telegram.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeout) * time.Second}, []slog.Attr{
		slog.String("event", "mode"),
		slog.String("mode", coreconfig.RunModeLongpoll),
		slog.Int("timeout_seconds", timeout),
	}
}

// DispatcherOptionsFrom maps the sender config section to dispatcher options.
func DispatcherOptionsFrom(sc coreconfig.SenderConfig) sender.Options {
	return sender.Options{
		QueueSize:    sc.QueueSize,
		Workers:      sc.Workers,
		MaxRetries:   sc.MaxRetries,
		RetryBackoff: time.Duration(sc.RetryBackoffMS) * time.Millisecond,
	}
}

// logHandlerError receives errors returned by handlers that no middleware consumed.
func logHandlerError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error",
		slog.String("err", logger.SanitizeLimit(sender.Redact(err), 256)),
		slog.String("err_code", sender.ClassifyError(err)),
	)
}
