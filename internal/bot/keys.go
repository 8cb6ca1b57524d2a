package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage"
)

func (b *Bot) handlePutKey(c tele.Context) error {
	uid := c.Sender().ID
	b.sessions.Clear(uid)
	b.sessions.SetState(uid, stateAwaitKey)
	return reply(c, textEnterKey)
}

var redeemRejections = []struct {
	err    error
	reason string
	text   string
}{
	{storage.ErrInvalidKey, "invalid", textInvalidKey},
	{storage.ErrKeyAlreadyUsed, "used", textKeyUsed},
	{storage.ErrNotRegistered, "not_registered", textNotRegistered},
}

// handleKeyInput redeems the next text message. Rejected keys keep the state so the user can retry.
func (b *Bot) handleKeyInput(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := c.Sender().ID
	token := strings.TrimSpace(c.Text())
	if token == "" {
		return reply(c, textKeyAsText)
	}

	red, err := b.store.RedeemKey(ctx, uid, token, b.now(), b.cfg.Policy())
	if err != nil {
		for _, r := range redeemRejections {
			if errors.Is(err, r.err) {
				b.metrics.Redemptions.WithLabelValues(r.reason).Inc()
				logger.Info(ctx, "service.keys", "key.redeem",
					slog.String("outcome", "rejected"),
					slog.String("reason", r.reason),
				)
				return reply(c, r.text)
			}
		}
		b.metrics.Redemptions.WithLabelValues("error").Inc()
		return b.internalError(c, "key.redeem_failed", err)
	}

	b.sessions.Clear(uid)
	b.metrics.Redemptions.WithLabelValues("ok").Inc()
	logger.Info(ctx, "service.keys", "key.redeem",
		slog.String("outcome", "ok"),
		slog.Int("key_days", red.Days),
		slog.String("expiry", plan.FormatDate(red.Expiry)),
	)
	return reply(c, fmt.Sprintf(textKeyRedeemed, red.Days, plan.FormatDate(red.Expiry)), mainMenu())
}
