package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes text sends and edits through d. nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// enqueue hands run to the dispatcher, or runs it inline when there is none
// or its queue refuses the call.
func enqueue(c tele.Context, action string, run func() error) error {
	return dispatch(c, action, run, (*sender.Dispatcher).Enqueue)
}

// await is enqueue that also waits for run to finish and returns its error.
func await(c tele.Context, action string, run func() error) error {
	return dispatch(c, action, run, (*sender.Dispatcher).Do)
}

func dispatch(c tele.Context, action string, run func() error,
	submit func(*sender.Dispatcher, context.Context, string, func() error) error,
) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := submit(d, ctx, action, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.inline",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	default:
		return err
	}
}

func markdown(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendMD queues a Markdown message to the current chat.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markdown(markup)
	return enqueue(c, "send.text", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendMD queues an edit of the callback's message, falling back to a new message.
func EditOrSendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := markdown(markup)
	return enqueue(c, "edit.text", func() error {
		return c.EditOrSend(text, opts)
	})
}

// SendDocument uploads path after the messages already queued for the chat and
// returns once the upload is done, so the caller may remove the file afterwards.
func SendDocument(c tele.Context, path, fileName, caption string) error {
	doc := &tele.Document{File: tele.FromDisk(path), FileName: fileName, Caption: caption}
	return await(c, "send.document", func() error {
		return c.Send(doc, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	})
}
