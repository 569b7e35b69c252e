// Package flow is the per-user conversation state machine: it maps every
// inbound button, upload or text to a row of a static transition table,
// mutates the session store under a per-user lock, and hands terminal work
// to an operation pool.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/staging"
)

// Limits bounds accumulating flows.
type Limits struct {
	MaxMergeFiles int
	MaxImages     int
}

// Options wires a Dispatcher. Subscribers and Observer are optional.
type Options struct {
	Store       state.Manager
	Locks       state.Locker
	Stager      *staging.Stager
	Runner      Runner
	Executor    Executor
	Catalog     Catalog
	Subscribers Subscribers
	Observer    Observer
	Limits      Limits
}

// Dispatcher routes events to transitions.
type Dispatcher struct {
	store    state.Manager
	locks    state.Locker
	stager   *staging.Stager
	runner   Runner
	exec     Executor
	catalog  Catalog
	subs     Subscribers
	observer Observer
	limits   Limits

	ran    atomic.Uint64
	failed atomic.Uint64
}

// New validates opts and applies default limits (20 PDFs, 100 images).
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("flow: session store is required")
	case opts.Stager == nil:
		return nil, errors.New("flow: stager is required")
	case opts.Runner == nil:
		return nil, errors.New("flow: operation runner is required")
	case opts.Catalog == nil:
		return nil, errors.New("flow: text catalog is required")
	}
	if opts.Locks == nil {
		opts.Locks = state.NewKeyedLocker()
	}
	if opts.Executor == nil {
		opts.Executor = InlineExecutor{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Limits.MaxMergeFiles <= 0 {
		opts.Limits.MaxMergeFiles = 20
	}
	if opts.Limits.MaxImages <= 0 {
		opts.Limits.MaxImages = 100
	}
	return &Dispatcher{
		store:    opts.Store,
		locks:    opts.Locks,
		stager:   opts.Stager,
		runner:   opts.Runner,
		exec:     opts.Executor,
		catalog:  opts.Catalog,
		subs:     opts.Subscribers,
		observer: opts.Observer,
		limits:   opts.Limits,
	}, nil
}

// InProgress reports whether the user has an active flow.
func (d *Dispatcher) InProgress(userID int64) bool {
	return d.store.InProgress(userID)
}

// Language returns the user's language.
func (d *Dispatcher) Language(userID int64) string {
	return d.store.Language(userID)
}

// Handle processes ev under the user's lock. A terminal job is scheduled
// after the lock is released.
func (d *Dispatcher) Handle(ctx context.Context, ev Event, out Responder) error {
	if ev.UserID == 0 {
		return errors.New("flow: event without user")
	}
	unlock, err := d.locks.Lock(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("flow: lock user %d: %w", ev.UserID, err)
	}
	j, err := d.route(ctx, ev, out)
	unlock()

	if j == nil {
		return err
	}
	run := func(jctx context.Context) { d.runJob(jctx, j, out) }
	if serr := d.exec.Submit(ctx, string(j.op), run); serr != nil {
		d.stager.Discard(ctx, j.inputs...)
		_ = out.Send(d.reply(j.lang, "error", nil, MenuMain))
		return errors.Join(err, fmt.Errorf("flow: schedule %s: %w", j.op, serr))
	}
	return err
}

func (d *Dispatcher) route(ctx context.Context, ev Event, out Responder) (*job, error) {
	switch ev.Kind {
	case EventButton:
		return d.onButton(ctx, ev, out)
	case EventDocument, EventPhoto:
		if ev.Upload == nil {
			return nil, errors.New("flow: upload event without file")
		}
		return d.onUpload(ctx, ev, out)
	case EventText:
		return d.onText(ctx, ev, out)
	}
	return nil, fmt.Errorf("flow: unknown event kind %d", ev.Kind)
}

func (d *Dispatcher) text(lang, key string, args map[string]any) string {
	return d.catalog.Lookup(lang, key, args)
}

func (d *Dispatcher) reply(lang, key string, args map[string]any, menu Menu) Reply {
	return Reply{Text: d.text(lang, key, args), Menu: menu, Lang: lang}
}

// setState moves the user to next and reports the transition.
func (d *Dispatcher) setState(ctx context.Context, userID int64, from, next state.State) {
	if next == state.StateIdle {
		d.store.ClearState(userID)
	} else {
		d.store.SetState(userID, next)
	}
	if from == next {
		return
	}
	d.observer.Transition(from, next)
	logger.Debug(ctx, "flow", "transition",
		slog.Int64("user_id", userID),
		slog.String("state", string(from)),
		slog.String("next_state", string(next)),
	)
}

// reset drops staged files and the whole session except the language.
func (d *Dispatcher) reset(ctx context.Context, userID int64) {
	sess := d.store.Get(userID)
	if paths := sess.Paths(ParamTarget); len(paths) > 0 {
		d.stager.Discard(ctx, paths...)
	}
	d.store.ClearAll(userID)
	if sess.State != state.StateIdle {
		d.observer.Transition(sess.State, state.StateIdle)
		logger.Debug(ctx, "flow", "transition",
			slog.Int64("user_id", userID),
			slog.String("state", string(sess.State)),
			slog.String("next_state", string(state.StateIdle)),
		)
	}
}

// Stats summarizes the bot for admins.
type Stats struct {
	Subscribers int
	Active      int
	Operations  uint64
	Failed      uint64
}

// Stats reads counters; a subscriber store failure is returned with partial stats.
func (d *Dispatcher) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		Active:     d.store.Active(),
		Operations: d.ran.Load(),
		Failed:     d.failed.Load(),
	}
	if d.subs == nil {
		return st, nil
	}
	n, err := d.subs.Count(ctx)
	if err != nil {
		return st, fmt.Errorf("flow: count subscribers: %w", err)
	}
	st.Subscribers = n
	return st, nil
}
