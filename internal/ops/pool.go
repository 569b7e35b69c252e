package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("ops: pool closed")

// PoolOptions sizes the job pool.
type PoolOptions struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single job.
	Timeout time.Duration
}

type task struct {
	ctx  context.Context
	name string
	run  func(ctx context.Context)
}

// Pool runs terminal jobs on a fixed set of workers. When the queue is full
// the job runs on the caller's goroutine instead of being dropped.
type Pool struct {
	opts  PoolOptions
	tasks chan task
	once  sync.Once
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	inline atomic.Uint64
	busy   atomic.Int64
}

// NewPool starts the workers.
func NewPool(opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	p := &Pool{
		opts:  opts,
		tasks: make(chan task, opts.QueueSize),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

// Timeout returns the per-job timeout.
func (p *Pool) Timeout() time.Duration { return p.opts.Timeout }

// Submit schedules run. The context passed to run carries the pool timeout.
func (p *Pool) Submit(ctx context.Context, name string, run func(ctx context.Context)) error {
	if run == nil {
		return fmt.Errorf("ops: nil job %q", name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t := task{ctx: ctx, name: name, run: run}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	p.inline.Add(1)
	logger.Warn(ctx, "ops", "queue.fallback",
		slog.String("op", name),
		slog.Int("queue", p.opts.QueueSize),
	)
	p.execute(t)
	return nil
}

// Busy returns the number of jobs currently running.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// InlineCount returns how many jobs ran on the caller because the queue was full.
func (p *Pool) InlineCount() uint64 { return p.inline.Load() }

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), p.opts.Timeout)
	defer cancel()

	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "ops", "job.panic",
				slog.String("op", t.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	t.run(ctx)
}
