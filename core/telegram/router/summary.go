// Package router turns the registry into telebot routes and writes one
// handler.handled summary per update.
package router

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/metrics"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/core/telegram/sender"
)

var handledMetrics atomic.Pointer[metrics.Registry]

// SetMetrics wires the registry that counts handler summaries; nil disables counting.
func SetMetrics(m *metrics.Registry) {
	handledMetrics.Store(m)
}

// summary describes one routed update for the handler.handled record.
type summary struct {
	handler string
	status  string // defaults to ok/fail from the handler error
	extras  []slog.Attr
}

// run calls fn under the handler name and logs the outcome.
func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, s.handler)
	var err error
	if fn != nil {
		err = fn(c)
	}

	status, outcome := s.status, "ok"
	if err != nil {
		outcome = "fail"
	}
	if status == "" {
		status = outcome
	}
	if m := handledMetrics.Load(); m != nil {
		m.Handled.WithLabelValues(s.handler, status).Inc()
	}

	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", tghelpers.Replies(c)),
		slog.Duration("duration", time.Since(start)),
	}, s.extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(sender.Redact(err), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

// handlerName turns command keys into stable labels: "/profile" becomes "profile".
func handlerName(key string) string {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(key, " ", "_"))
}

// errorCode prefers a Code() string on the error chain and falls back to
// the Telegram send classification.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	return strings.ToUpper(sender.ClassifyError(err))
}
