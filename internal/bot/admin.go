package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	"github.com/m3rciful/vcfbot/core/telegram/format"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/core/telegram/state"
	"github.com/m3rciful/vcfbot/internal/broadcast"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage"
)

func (b *Bot) handleAdmin(c tele.Context) error {
	b.sessions.Clear(c.Sender().ID)
	return reply(c, textAdminPanel, adminMenu())
}

func (b *Bot) handleAddKey(c tele.Context) error {
	return reply(c, textSelectDuration, durationMarkup(b.cfg.Plans.KeyDurations))
}

// handleAddKeyCallback issues a key for the chosen duration. Only configured durations are accepted.
func (b *Bot) handleAddKeyCallback(c tele.Context) error {
	if !b.isAdmin(c) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	days, err := callbacks.PayloadInt(c)
	if err != nil || !slices.Contains(b.cfg.Plans.KeyDurations, days) {
		return callbacks.Respond(c, textBadDuration, true)
	}

	key, err := plan.NewKey()
	if err != nil {
		return b.internalError(c, "key.generate_failed", err)
	}
	if err := b.store.CreateKey(ctx, key, days); err != nil {
		return b.internalError(c, "key.create_failed", err)
	}
	logger.Info(ctx, "service.keys", "key.created", slog.Int("key_days", days))
	return tghelpers.SendMD(c, fmt.Sprintf(textKeyGenerated, key, days))
}

// promptState asks the admin for the next message and parks the session in st.
func (b *Bot) promptState(st state.State, prompt string) tele.HandlerFunc {
	return func(c tele.Context) error {
		uid := c.Sender().ID
		b.sessions.Clear(uid)
		b.sessions.SetState(uid, st)
		return reply(c, prompt)
	}
}

// adminStep guards an admin FSM step. The state is dropped once the step
// has run unless the step returns errRetry.
func (b *Bot) adminStep(h func(c tele.Context, text string) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		uid := c.Sender().ID
		if !b.isAdmin(c) {
			b.sessions.Clear(uid)
			return nil
		}
		text := strings.TrimSpace(c.Text())
		if text == "" {
			return reply(c, textExpectText)
		}
		err := h(c, text)
		if errors.Is(err, errRetry) {
			return nil
		}
		b.sessions.Clear(uid)
		return err
	}
}

var errRetry = errors.New("retry step")

func (b *Bot) handleDisableKey(c tele.Context, key string) error {
	ctx := tghelpers.BuildContext(c)
	err := b.store.DisableKey(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return reply(c, fmt.Sprintf(textKeyNotFound, key), adminMenu())
	}
	if err != nil {
		return b.internalError(c, "key.disable_failed", err)
	}
	logger.Info(ctx, "service.keys", "key.disabled")
	return reply(c, fmt.Sprintf(textKeyDisabled, key), adminMenu())
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	s, err := b.store.Stats(ctx, b.now())
	if err != nil {
		return b.internalError(c, "stats.failed", err)
	}
	return reply(c, fmt.Sprintf(textStats, s.Total, s.WithPlan, s.ActivePlan, s.Banned), adminMenu())
}

func parseUserID(c tele.Context, text string) (int64, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		_ = reply(c, textInvalidNumber)
		return 0, errRetry
	}
	return id, nil
}

func (b *Bot) handleSearchUser(c tele.Context, text string) error {
	id, err := parseUserID(c, text)
	if err != nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	u, err := b.store.GetUserByTelegramID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return reply(c, textUserNotFound, adminMenu())
	}
	if err != nil {
		return b.internalError(c, "user.search_failed", err)
	}
	st := plan.Evaluate(u.Subject(), b.now())
	banned := "No"
	if u.Banned {
		banned = "Yes"
	}
	handle := format.EscapeV1(displayHandle(u))
	return tghelpers.SendMD(c, fmt.Sprintf(textSearchResult, handle, u.UserID, st.Label(), banned), adminMenu())
}

func (b *Bot) handleToggleBan(c tele.Context, text string) error {
	id, err := parseUserID(c, text)
	if err != nil {
		return err
	}
	ctx := tghelpers.BuildContext(c)
	banned, err := b.store.ToggleBan(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return reply(c, textUserNotFound, adminMenu())
	}
	if err != nil {
		return b.internalError(c, "user.ban_failed", err)
	}
	logger.Info(ctx, "service.users", "user.ban_toggled",
		slog.Int64("target_id", id),
		slog.Bool("banned", banned),
	)
	if banned {
		return reply(c, fmt.Sprintf(textUserBanned, id), adminMenu())
	}
	return reply(c, fmt.Sprintf(textUserUnbanned, id), adminMenu())
}

func (b *Bot) handleBroadcast(c tele.Context, text string) error {
	ctx := tghelpers.BuildContext(c)
	rep, err := b.broadcaster(c).Send(ctx, fmt.Sprintf(textBroadcastBody, text))
	if err != nil && rep.Total == 0 {
		return b.internalError(c, "broadcast.failed", err)
	}
	return reply(c, broadcastSummary(rep, err), adminMenu())
}

func broadcastSummary(rep broadcast.Report, err error) string {
	var sb strings.Builder
	if err != nil {
		fmt.Fprintf(&sb, textBroadcastError, rep.Delivered, rep.Total)
	} else {
		fmt.Fprintf(&sb, textBroadcastDone, rep.Delivered, rep.Total)
	}
	if rep.Failed > 0 {
		kinds := rep.ReasonKinds()
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s: %d", k, rep.Reasons[k]))
		}
		fmt.Fprintf(&sb, textBroadcastFailed, rep.Failed, strings.Join(parts, ", "))
	}
	return sb.String()
}

// handleToggle flips availability. Switching back on announces it to every non-banned user.
func (b *Bot) handleToggle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	open := b.toggleOpen()

	label := "OFF"
	if open {
		label = "ON"
	}
	logger.Info(ctx, "tg", "bot.availability", slog.Bool("open", open))
	if err := reply(c, fmt.Sprintf(textBotState, label), adminMenu()); err != nil {
		return err
	}
	if !open {
		return nil
	}
	rep, err := b.broadcaster(c).Send(ctx, textBotLive)
	if err != nil {
		logger.Warn(ctx, "service.broadcast", "broadcast.live_failed",
			slog.Int("delivered", rep.Delivered),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (b *Bot) toggleOpen() bool {
	for {
		cur := b.open.Load()
		if b.open.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}
