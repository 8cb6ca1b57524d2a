package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
)

// Update kinds used for rate limit exclusions and metrics labels.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

// UpdateKind classifies an update for rate limiting and metrics.
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return KindCallback
	case u.Message != nil:
		return KindMessage
	case u.Query != nil:
		return KindInlineQuery
	}
	return KindOther
}

// Logging seeds the update's logging context, so every later log line
// carries its rid, and writes a sampled update.received record.
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receipt(c)...)
		}
		return next(c)
	}
}

func receipt(c tele.Context) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil && u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
	}
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Split(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil && upd.Message.Document != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Document.FileName, 128)))
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)))
	}
	return attrs
}
