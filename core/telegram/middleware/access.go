package middleware

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
)

// AdminOptions configure AdminOnly. A zero AdminID disables the check.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

func isAdmin(c tele.Context, adminID int64) bool {
	u := c.Sender()
	return adminID != 0 && u != nil && u.ID == adminID
}

// AdminOnly lets only the admin reach next. Others get OnReject, or
// silence when it is nil.
func AdminOnly(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			switch {
			case opts.AdminID == 0, isAdmin(c, opts.AdminID):
				return next(c)
			case opts.OnReject != nil:
				return opts.OnReject(c)
			}
			return nil
		}
	}
}

// AvailabilityOptions configure the maintenance gate.
type AvailabilityOptions struct {
	// Open reports whether regular users are served. Nil means always.
	Open func() bool
	// AdminID passes while closed so the bot can be switched back on.
	AdminID  int64
	OnClosed tele.HandlerFunc
}

// Availability holds back non-admin updates while the bot is switched off.
func Availability(opts AvailabilityOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Open == nil || opts.Open() || isAdmin(c, opts.AdminID) {
				return next(c)
			}
			logger.Debug(tghelpers.BuildContext(c), "tg", "tg.maintenance")
			if opts.OnClosed == nil {
				return nil
			}
			return opts.OnClosed(c)
		}
	}
}
