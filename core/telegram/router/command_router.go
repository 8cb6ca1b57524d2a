package router

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tg "github.com/m3rciful/vcfbot/core/telegram"
	"github.com/m3rciful/vcfbot/core/telegram/commands"
	"github.com/m3rciful/vcfbot/core/telegram/middleware"
)

// CommandRouteOptions control how slash commands are exposed.
type CommandRouteOptions struct {
	AdminID int64
	// OnAdminReject answers non-admins. Nil ignores them silently.
	OnAdminReject tele.HandlerFunc
}

func (o CommandRouteOptions) guard(cmd commands.Command) tele.HandlerFunc {
	if !cmd.AdminOnly {
		return cmd.Handler
	}
	return middleware.AdminOnly(middleware.AdminOptions{
		AdminID:  o.AdminID,
		OnReject: o.OnAdminReject,
	})(cmd.Handler)
}

// CommandRoutes returns one route per registered command. Admin-only
// commands are wrapped in the admin check.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for key, cmd := range cmds {
		s := summary{handler: handlerName(key)}
		h := opts.guard(cmd)
		routes = append(routes, tg.Route{
			Endpoint: key,
			Handler:  func(c tele.Context) error { return s.run(c, h) },
		})
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.routes",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
