package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// replies counts what a handler sent back for one update.
type replies struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

type countingContext struct {
	tele.Context
	r *replies
}

func (c countingContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.r.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				c.r.keyboard.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				c.r.keyboard.Store(true)
			}
		}
	}
	return nil
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(c.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware counts messages and keyboards sent through the context.
// Sends made later by the async sender are counted too, but may land after the
// handler summary has been logged.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		r := &replies{}
		c.Set(repliesKey, r)
		return next(countingContext{Context: c, r: r})
	}
}

// GetCounters returns the messages sent so far and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	r, ok := c.Get(repliesKey).(*replies)
	if !ok {
		return 0, false
	}
	return int(r.messages.Load()), r.keyboard.Load()
}
