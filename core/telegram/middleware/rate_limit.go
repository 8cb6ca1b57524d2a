package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
)

// RateLimitOptions configure the per-user limiter.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that bypass the limiter.
	Exclude map[string]bool
	// OnLimited answers a dropped update. Its error is ignored.
	OnLimited tele.HandlerFunc
	// OnDecision observes every limiter decision, e.g. for metrics.
	OnDecision func(kind string, allowed bool)
}

// limiters keeps one token bucket per user. Buckets idle for longer than
// ttl are dropped on the next sweep.
type limiters struct {
	mu        sync.Mutex
	every     rate.Limit
	ttl       time.Duration
	users     map[int64]*userLimiter
	lastSweep time.Time
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

func (l *limiters) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > l.ttl {
		for id, u := range l.users {
			if now.Sub(u.seen) > l.ttl {
				delete(l.users, id)
			}
		}
		l.lastSweep = now
	}
	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(l.every, 1)}
		l.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

// RateLimit drops updates that arrive faster than opts.Interval per user.
// A non-positive interval disables it.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	l := &limiters{
		every: rate.Every(opts.Interval),
		ttl:   max(opts.Interval*10, time.Minute),
		users: make(map[int64]*userLimiter),
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			kind := UpdateKind(c.Update())
			if c.Sender() == nil || opts.Interval <= 0 || opts.Exclude[kind] {
				return next(c)
			}
			allowed := l.allow(c.Sender().ID, time.Now())
			if opts.OnDecision != nil {
				opts.OnDecision(kind, allowed)
			}
			if allowed {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit")
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
