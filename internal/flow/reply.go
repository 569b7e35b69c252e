package flow

import (
	"context"
	"time"

	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
)

// Menu selects the keyboard attached to a reply.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuOrganize
	MenuOptimize
	MenuConvert
	MenuEdit
	MenuSecurity
	MenuLanguage
	MenuCancel
	MenuDone
	MenuMerge
	MenuPending
)

// Reply is a localized message plus the keyboard to show under it.
type Reply struct {
	Text string
	Menu Menu
	Lang string
	// Count feeds menus that show a running total.
	Count int
}

// Responder delivers replies to the user who sent the event.
type Responder interface {
	Send(r Reply) error
	// Edit replaces the message a button was pressed on, or sends when there is none.
	Edit(r Reply) error
	SendFile(path, name, caption string) error
}

// Subscribers stores users who asked for update notifications.
type Subscribers interface {
	Add(ctx context.Context, userID int64) (bool, error)
	Remove(ctx context.Context, userID int64) (bool, error)
	IsMember(ctx context.Context, userID int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Catalog resolves text keys.
type Catalog interface {
	Lookup(lang, key string, args map[string]any) string
	Supports(lang string) bool
}

// Runner executes operations; *ops.Registry implements it.
type Runner interface {
	Run(ctx context.Context, op ops.Op, req ops.Request) (ops.Artifact, error)
}

// Executor schedules terminal jobs; *ops.Pool implements it.
type Executor interface {
	Submit(ctx context.Context, name string, run func(ctx context.Context)) error
}

// Observer receives flow events for metrics.
type Observer interface {
	Transition(from, to state.State)
	Operation(op ops.Op, code string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) Transition(state.State, state.State)     {}
func (nopObserver) Operation(ops.Op, string, time.Duration) {}

// InlineExecutor runs jobs on the caller's goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Submit(ctx context.Context, _ string, run func(ctx context.Context)) error {
	run(ctx)
	return nil
}
