// Package sender runs outbound Telegram calls on a small worker pool so
// handlers return before the API answers.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/vcfbot/core/logger"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job did not fit in the queue.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilJob = errors.New("telegram sender: nil run function")
)

// Options tune the dispatcher. Zero values pick the defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx    context.Context
	action string
	run    func() error
}

// Dispatcher executes queued sends with linear backoff. A single worker
// keeps replies to one chat in the order they were queued.
type Dispatcher struct {
	opts   Options
	jobs   chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. It never blocks: a full queue returns ErrQueueFull
// and the caller decides whether to send inline. run may be called more
// than once.
func (d *Dispatcher) Enqueue(ctx context.Context, action string, run func() error) error {
	if run == nil {
		return errNilJob
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures returns how many jobs gave up.
func (d *Dispatcher) Failures() uint64 {
	return d.failed.Load()
}

// Close rejects new jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts, err := d.attempt(ctx, j)
	took := logger.RoundMS(time.Since(start))
	if err == nil {
		logger.Debug(j.ctx, "tg.sender", "send.success",
			slog.String("action", j.action),
			slog.Int("attempts", attempts),
			slog.Duration("duration", took),
		)
		return
	}
	d.failed.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail",
		slog.String("action", j.action),
		slog.String("err", Redact(err)),
		slog.String("err_code", ClassifyError(err)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", took),
	)
}

// attempt runs j until it succeeds, fails permanently or runs out of
// retries. Flood errors wait as long as Telegram asks.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	var err error
	for n := 1; ; n++ {
		if err = j.run(); err == nil {
			return n, nil
		}
		if n > d.opts.MaxRetries || !Retryable(err) {
			return n, err
		}
		wait := RetryAfter(err)
		if wait == 0 {
			wait = d.opts.RetryBackoff * time.Duration(n)
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry",
			slog.String("action", j.action),
			slog.Int("attempts", n),
			slog.Duration("backoff", wait),
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return n, errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
}
