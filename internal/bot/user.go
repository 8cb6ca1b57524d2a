package bot

import (
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage"
)

func reply(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return tghelpers.Send(c, text, opts)
}

func (b *Bot) internalError(c tele.Context, event string, err error) error {
	ctx := tghelpers.BuildContext(c)
	logger.Error(ctx, "tg", event, slog.String("err", err.Error()))
	_ = reply(c, textInternalError)
	return err
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	u := c.Sender()
	created, err := b.store.EnsureUser(ctx, u.ID, u.Username)
	if err != nil {
		return b.internalError(c, "user.register_failed", err)
	}
	if created {
		logger.Info(ctx, "service.users", "user.registered", slog.Int64("user_id", u.ID))
	}
	return reply(c, textWelcome, channelGate(b.cfg.Bot.Channels))
}

func (b *Bot) handleVerify(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	members := b.membersFor(c)
	userID := c.Sender().ID
	for _, ch := range b.cfg.Bot.Channels {
		ok, err := members.IsMember(ctx, ch, userID)
		if err != nil {
			logger.Warn(ctx, "service.users", "verify.lookup_failed",
				slog.String("channel", ch),
				slog.String("err", err.Error()),
			)
			return callbacks.Respond(c, textVerifyError, true)
		}
		if !ok {
			logger.Debug(ctx, "service.users", "verify.missing", slog.String("channel", ch))
			return callbacks.Respond(c, textNotJoined, true)
		}
	}
	logger.Info(ctx, "service.users", "verify.ok", slog.Int("channels", len(b.cfg.Bot.Channels)))
	_ = callbacks.Respond(c, "", false)
	return reply(c, textVerified, mainMenu())
}

func (b *Bot) handleMenu(c tele.Context) error {
	b.sessions.Clear(c.Sender().ID)
	return reply(c, textMainMenu, mainMenu())
}

func (b *Bot) handleProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	u, err := b.store.GetUserByTelegramID(ctx, c.Sender().ID)
	if errors.Is(err, storage.ErrNotFound) {
		return reply(c, textNotRegistered)
	}
	if err != nil {
		return b.internalError(c, "profile.load_failed", err)
	}
	st := plan.Evaluate(u.Subject(), b.now())
	return reply(c, fmt.Sprintf(textProfile, u.UserID, displayHandle(u), st.Label()))
}

func displayHandle(u *storage.User) string {
	if h := u.Handle(); h != "" {
		return "@" + h
	}
	return "-"
}

func (b *Bot) handleContact(c tele.Context) error {
	if b.cfg.Bot.AdminUsername == "" {
		return reply(c, textContactNoAdmin)
	}
	return reply(c, fmt.Sprintf(textContactAdmin, b.cfg.Bot.AdminUsername))
}

func (b *Bot) handleCancel(c tele.Context) error {
	uid := c.Sender().ID
	if !b.sessions.InProgress(uid) {
		return reply(c, textNothingToCancel)
	}
	b.cancelSession(c)
	return reply(c, textCancelled, mainMenu())
}

func (b *Bot) cancelSession(c tele.Context) {
	uid := c.Sender().ID
	if _, ok := b.sessions.GetTemp(uid, draftKey); ok {
		b.metrics.Sessions.WithLabelValues("cancelled").Inc()
		logger.Info(tghelpers.BuildContext(c), "service.vcf", "wizard.cancelled",
			slog.String("step", string(b.sessions.GetState(uid))),
		)
	}
	b.sessions.Clear(uid)
}

// handleUnknown answers unmatched text and documents. Admins are ignored.
func (b *Bot) handleUnknown(c tele.Context) error {
	if b.isAdmin(c) {
		return nil
	}
	return reply(c, textUnknown)
}
