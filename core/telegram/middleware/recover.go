package middleware

import (
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
)

// Recover stops a handler panic from taking the poller down. The panic is
// logged with its stack; onPanic, when set, lets the bot apologise to the user.
func Recover(onPanic tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = nil
				if onPanic != nil {
					err = onPanic(c)
				}
			}()
			return next(c)
		}
	}
}
