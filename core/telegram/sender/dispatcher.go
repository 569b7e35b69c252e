// Package sender runs outbound Telegram calls on background workers.
// Calls for one chat always land on the same worker, so replies to a chat
// leave in the order they were queued.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	ErrQueueFull   = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options sizes the dispatcher. Zero values take defaults.
type Options struct {
	// QueueSize is per worker.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one call including its retries.
	MaxDuration time.Duration
}

type call struct {
	ctx    context.Context
	action string
	run    func() error
	// done receives the final error of a Do call.
	done chan error
}

// Dispatcher executes queued calls with retries on transient failures.
type Dispatcher struct {
	opts   Options
	queues []chan call
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	failed atomic.Uint64
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}
	d := &Dispatcher{opts: opts, queues: make([]chan call, opts.Workers)}
	for i := range d.queues {
		d.queues[i] = make(chan call, opts.QueueSize)
		d.wg.Add(1)
		go d.work(d.queues[i])
	}
	return d
}

// Enqueue schedules run on the worker owning the chat recorded in ctx.
// It never blocks; a full queue returns ErrQueueFull.
func (d *Dispatcher) Enqueue(ctx context.Context, action string, run func() error) error {
	return d.push(ctx, call{action: action, run: run})
}

// Do queues run behind the chat's pending calls and waits for its outcome.
// Queue errors are returned before run is attempted.
func (d *Dispatcher) Do(ctx context.Context, action string, run func() error) error {
	done := make(chan error, 1)
	if err := d.push(ctx, call{action: action, run: run, done: done}); err != nil {
		return err
	}
	return <-done
}

func (d *Dispatcher) push(ctx context.Context, c call) error {
	if c.run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	q := d.queues[shard(logger.ChatIDFrom(ctx), len(d.queues))]
	select {
	case q <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

func shard(chatID int64, n int) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(n))
}

// Failed counts calls that gave up.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

// Close drains queued calls and stops the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(q <-chan call) {
	defer d.wg.Done()
	for c := range q {
		d.do(c)
	}
}

func (d *Dispatcher) do(c call) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telegram sender: panic in %s: %v", c.action, r)
			d.failed.Add(1)
			logger.Error(c.ctx, "tg.sender", "send.panic",
				slog.String("action", c.action),
				slog.String("err", err.Error()),
			)
		}
		if c.done != nil {
			c.done <- err
		}
	}()
	err = d.attempt(c)
}

func (d *Dispatcher) attempt(c call) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), d.opts.MaxDuration)
	defer cancel()
	start := time.Now()

	var (
		err     error
		attempt int
	)
loop:
	for attempt = 1; ; attempt++ {
		if err = c.run(); err == nil {
			logger.Debug(ctx, "tg.sender", "send",
				slog.String("status", "ok"),
				slog.String("action", c.action),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil
		}
		wait, retry := backoff(err, attempt, d.opts.RetryBackoff)
		if !retry || attempt > d.opts.MaxRetries {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			err = errors.Join(err, ctx.Err())
			break loop
		case <-t.C:
		}
	}

	d.failed.Add(1)
	logger.Error(ctx, "tg.sender", "send",
		slog.String("status", "fail"),
		slog.String("action", c.action),
		slog.Int("attempts", attempt),
		slog.Int("http_code", statusOf(err)),
		slog.String("err", SanitizeError(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	return err
}

// backoff honours Telegram's retry_after on flood errors and grows linearly otherwise.
func backoff(err error, attempt int, base time.Duration) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if statusOf(err) >= http.StatusInternalServerError || netutil.ShouldRetry(err) {
		return base * time.Duration(attempt), true
	}
	return 0, false
}

func statusOf(err error) int {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// SanitizeError renders err with bot tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
