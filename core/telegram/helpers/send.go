package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes Send and SendMD through d. Nil sends inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Send delivers text to the chat of the current update. With a dispatcher
// set the call is queued; when the queue refuses it the message is sent
// inline so it is not lost.
func Send(c tele.Context, text string, opts *tele.SendOptions) error {
	run := func() error {
		if opts == nil {
			return c.Send(text)
		}
		return c.Send(text, opts)
	}
	countReply(c)
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, "send.message", run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback", slog.String("err", err.Error()))
		return run()
	}
	return err
}

// SendMD sends Markdown (v1) text with an optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return Send(c, text, opts)
}

// SendNow sends inline, bypassing the dispatcher. Use it when later
// messages must not overtake this one.
func SendNow(c tele.Context, what any, opts ...any) error {
	if err := c.Send(what, opts...); err != nil {
		return err
	}
	countReply(c)
	return nil
}

const repliesSlot = "replies"

func countReply(c tele.Context) {
	n, ok := c.Get(repliesSlot).(*atomic.Int32)
	if !ok {
		n = new(atomic.Int32)
		c.Set(repliesSlot, n)
	}
	n.Add(1)
}

// Replies reports how many messages the current update queued or sent
// through this package.
func Replies(c tele.Context) int {
	if n, ok := c.Get(repliesSlot).(*atomic.Int32); ok {
		return int(n.Load())
	}
	return 0
}
