package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/vcfbot/core/telegram"
)

// Fallbacks answer updates that no command, callback or session claims.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Routes assembles the command, text, document and callback routes of a
// bot whose only privileged user is adminID.
func Routes(reg *tg.Registry, fsm FSM, fb Fallbacks, adminID int64) []tg.Route {
	reg.SetCallbackNotFound(fb.UnknownCallback())

	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: adminID})
	routes = append(routes, TextRoutes(fsm, reg, TextOptions{
		AdminID:         adminID,
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	return append(routes, CallbackRoute(reg, CallbackOptions{NotFound: fb.UnknownCallback()}))
}
