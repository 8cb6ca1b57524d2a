// Package broadcast delivers one message to every non-banned user without letting a
// single failed recipient stop the run.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/metrics"
	"github.com/m3rciful/vcfbot/core/telegram/sender"
)

// Recipients lists the users a broadcast goes to.
type Recipients interface {
	ListRecipients(ctx context.Context) ([]int64, error)
}

// Sender delivers a text message to one user.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, userID int64, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, userID int64, text string) error {
	return f(ctx, userID, text)
}

// Report summarises a run. Reasons counts failures by error kind.
type Report struct {
	Total     int
	Delivered int
	Failed    int
	Reasons   map[string]int
}

// ReasonKinds returns the failure kinds sorted by name.
func (r Report) ReasonKinds() []string {
	kinds := make([]string, 0, len(r.Reasons))
	for k := range r.Reasons {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Options configure pacing. A non-positive RatePerSecond disables the limiter.
type Options struct {
	RatePerSecond float64
	Burst         int
	Metrics       *metrics.Registry
	// Classify maps a send error to a reason; defaults to sender.ClassifyError.
	Classify func(error) string
}

// Broadcaster sends messages to every recipient through a token bucket.
type Broadcaster struct {
	recipients Recipients
	sender     Sender
	limiter    *rate.Limiter
	metrics    *metrics.Registry
	classify   func(error) string
}

// New builds a Broadcaster.
func New(recipients Recipients, s Sender, opts Options) *Broadcaster {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	classify := opts.Classify
	if classify == nil {
		classify = sender.ClassifyError
	}
	return &Broadcaster{
		recipients: recipients,
		sender:     s,
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    opts.Metrics,
		classify:   classify,
	}
}

// Send delivers text to all recipients. Per-recipient errors are counted in the report;
// only a failure to list recipients or a cancelled ctx is returned as an error, together
// with whatever was delivered so far.
func (b *Broadcaster) Send(ctx context.Context, text string) (Report, error) {
	start := time.Now()
	ids, err := b.recipients.ListRecipients(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("broadcast: %w", err)
	}

	rep := Report{Total: len(ids), Reasons: map[string]int{}}
	for _, id := range ids {
		if err := b.limiter.Wait(ctx); err != nil {
			logger.Warn(ctx, "service.broadcast", "broadcast.cancelled",
				slog.Int("recipients", rep.Total),
				slog.Int("delivered", rep.Delivered),
			)
			return rep, fmt.Errorf("broadcast: %w", err)
		}
		if err := b.sender.Send(ctx, id, text); err != nil {
			kind := b.classify(err)
			rep.Failed++
			rep.Reasons[kind]++
			b.count("failed")
			logger.Debug(ctx, "service.broadcast", "broadcast.recipient_failed",
				slog.Int64("user_id", id),
				slog.String("error_kind", kind),
			)
			continue
		}
		rep.Delivered++
		b.count("delivered")
	}

	logger.Info(ctx, "service.broadcast", "broadcast.done",
		slog.Int("recipients", rep.Total),
		slog.Int("delivered", rep.Delivered),
		slog.Int("failed", rep.Failed),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return rep, nil
}

func (b *Broadcaster) count(result string) {
	if b.metrics != nil {
		b.metrics.Broadcast.WithLabelValues(result).Inc()
	}
}
