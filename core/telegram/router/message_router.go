package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/vcfbot/core/telegram"
)

// FSM is the session manager the text routes hand multi-step input to.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions control fallback behaviour for text and document updates.
type TextOptions struct {
	AdminID         int64
	OnAdminReject   tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

func inSession(fsm FSM, c tele.Context) bool {
	return fsm != nil && c.Sender() != nil && fsm.InProgress(c.Sender().ID)
}

// TextRoutes builds the tele.OnText and tele.OnDocument routes.
// A registered command (by name or by alias such as a reply keyboard
// label) wins over an active FSM step so menu buttons always work. The
// rest goes to the FSM, then to the fallbacks.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	guard := CommandRouteOptions{AdminID: opts.AdminID, OnAdminReject: opts.OnAdminReject}

	onText := func(c tele.Context) error {
		if text := c.Text(); reg != nil && text != "" {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return summary{handler: handlerName(key)}.run(c, guard.guard(cmd))
			}
		}
		if inSession(fsm, c) {
			return summary{handler: "fsm"}.run(c, fsm.ManagerHandler)
		}
		return unknown("unknown_text", opts.UnknownText).run(c, opts.UnknownText)
	}

	onDocument := func(c tele.Context) error {
		if inSession(fsm, c) {
			return summary{handler: "fsm_document"}.run(c, fsm.ManagerHandler)
		}
		return unknown("unexpected_document", opts.UnknownDocument).run(c, opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: onText},
		{Endpoint: tele.OnDocument, Handler: onDocument},
	}
}

// unknown labels updates nobody handles as skipped.
func unknown(name string, h tele.HandlerFunc) summary {
	s := summary{handler: name}
	if h == nil {
		s.status = "skip"
	}
	return s
}
