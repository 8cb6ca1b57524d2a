package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
	"github.com/m3rciful/vcfbot/core/metrics"
	"github.com/m3rciful/vcfbot/core/telegram/middleware"
)

// ChainOptions customise DefaultMiddlewares. Every field is optional.
type ChainOptions struct {
	// OnPanic answers the user after a handler panicked.
	OnPanic tele.HandlerFunc
	// OnLimited answers an update dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// Metrics counts admitted and limited updates.
	Metrics *metrics.Registry
}

// DefaultMiddlewares returns recover, logging and, when configured, the
// per-user rate limiter, in that order.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover(opts.OnPanic)},
		{Name: "logging", Use: middleware.Logging},
	}
	if cfg == nil {
		return mws
	}
	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return mws
	}
	exclude := make(map[string]bool, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = true
	}
	rl := middleware.RateLimitOptions{
		Interval:  interval,
		Exclude:   exclude,
		OnLimited: opts.OnLimited,
	}
	if m := opts.Metrics; m != nil {
		rl.OnDecision = func(kind string, allowed bool) {
			result := "admitted"
			if !allowed {
				result = "limited"
			}
			m.Updates.WithLabelValues(kind, result).Inc()
		}
	}
	return append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimit(rl)})
}
