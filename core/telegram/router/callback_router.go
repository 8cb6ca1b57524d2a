package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
)

// CallbackOptions customise the fallback for unknown callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline button press through the registry.
// Handlers may answer the callback themselves with callbacks.Respond,
// otherwise an empty answer is sent once the handler returns.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Split(c.Callback())
		s := summary{
			handler: "callback." + handlerName(key),
			extras:  []slog.Attr{slog.String("cb_key", key)},
		}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			h = reg.CallbackNotFound()
			if h == nil {
				h = opts.NotFound
			}
			s.extras = append(s.extras, slog.String("reason", "not_found"))
		}
		return s.run(c, func(c tele.Context) error {
			var err error
			if h != nil {
				err = h(c)
			}
			if !callbacks.Responded(c) {
				_ = c.Respond()
			}
			return err
		})
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
