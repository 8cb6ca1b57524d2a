// Package logger provides the process-wide structured logger and the
// component loggers used across the bot.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/vcfbot/core/buildinfo"
	coreconfig "github.com/m3rciful/vcfbot/core/config"
)

var (
	initOnce sync.Once

	closeMu sync.Mutex
	closed  bool
	writer  *asyncWriter
	files   []io.Closer

	levelVar      slog.LevelVar
	debugSampler  = newSampler(1, 50)
	traceOverride bool

	// L is the root logger. Prefer the component loggers or Info/Warn/... helpers.
	L *slog.Logger

	DB    *slog.Logger // database connections and queries
	TG    *slog.Logger // Telegram transport
	MIG   *slog.Logger // schema migrations
	TWire *slog.Logger // handler and route registration
	SEED  *slog.Logger // bootstrap seeders
)

// Until InitLogger runs everything goes to slog's default handler, which
// keeps tests and tools quiet about sinks.
func init() {
	L = slog.Default()
	deriveComponents()
}

// settings is the logging section resolved to concrete values.
type settings struct {
	format     logFormat
	level      slog.Level
	order      []string
	sampleNum  int
	sampleDen  int
	profile    string
	botFile    string
	errorsFile string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		level:     slog.LevelInfo,
		order:     slices.Clone(defaultKeyOrder),
		sampleNum: 1,
		sampleDen: 50,
		profile:   "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		num, den := parseRatio(ratio)
		switch {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}
	if dir := strings.TrimSpace(lc.Dir); dir != "" {
		if f := strings.TrimSpace(lc.BotFile); f != "" {
			s.botFile = filepath.Join(dir, f)
		}
		if f := strings.TrimSpace(lc.ErrorsFile); f != "" {
			s.errorsFile = filepath.Join(dir, f)
		}
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger installs the structured handler as slog's default. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceOverride = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs := []leveledWriter{{w: os.Stdout, min: slog.LevelDebug}}
		var opened []io.Closer
		outputs, opened, err = openFiles(outputs, s)
		if err != nil {
			return
		}
		files = opened
		writer = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   writer,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)
		deriveComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup", append(buildinfo.Attrs(),
			slog.String("component", "app"),
			slog.String("cfg_profile", s.profile),
		)...)
	})
	return err
}

// openFiles appends the configured log files. The errors file only
// receives WARN and above.
func openFiles(outputs []leveledWriter, s settings) ([]leveledWriter, []io.Closer, error) {
	var opened []io.Closer
	for _, f := range []struct {
		path string
		min  slog.Level
	}{
		{s.botFile, slog.LevelDebug},
		{s.errorsFile, slog.LevelWarn},
	} {
		if f.path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return nil, opened, fmt.Errorf("logger: create log dir: %w", err)
		}
		fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			for _, c := range opened {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("logger: open %s: %w", f.path, err)
		}
		opened = append(opened, fh)
		outputs = append(outputs, leveledWriter{w: fh, min: f.min})
	}
	return outputs, opened, nil
}

func deriveComponents() {
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
	SEED = Component("db.seed")
}

// Shutdown flushes queued records and closes the log files. Later calls
// are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if writer != nil {
		errs = append(errs, writer.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Background is context.Background, kept for call sites that log outside
// of any update.
func Background() context.Context {
	return context.Background()
}

// Component returns L scoped to the given component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes a record with the event attribute set. A nil logg falls
// back to the logger carried by ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug record should be
// written. TRACE=1 lets everything through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
