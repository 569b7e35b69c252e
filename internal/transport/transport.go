// Package transport connects telebot updates to the conversation dispatcher.
package transport

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/callbacks"
	"github.com/m3rciful/pdfbot/core/telegram/commands"
	"github.com/m3rciful/pdfbot/core/telegram/helpers"
	"github.com/m3rciful/pdfbot/internal/flow"
	"github.com/m3rciful/pdfbot/internal/keyboards"
	"github.com/m3rciful/pdfbot/internal/staging"
)

// Bot adapts telebot contexts to flow events. It implements router.Inbound.
type Bot struct {
	flow  *flow.Dispatcher
	texts keyboards.Labels
}

func New(d *flow.Dispatcher, texts keyboards.Labels) *Bot {
	return &Bot{flow: d, texts: texts}
}

type slashCommand struct {
	name        string
	cmd         flow.Command
	description string
}

var slashCommands = []slashCommand{
	{"/start", flow.CmdStart, "Start the bot"},
	{"/help", flow.CmdHelp, "How to use the bot"},
	{"/language", flow.CmdLang, "Change language"},
	{"/cancel", flow.CmdCancel, "Cancel the current operation"},
	{"/subscribe", flow.CmdSubscribe, "Get notified about new tools"},
	{"/unsubscribe", flow.CmdUnsubscribe, "Stop notifications"},
}

// Register binds every flow button and slash command to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	for _, cmd := range flow.Commands() {
		if err := reg.RegisterCallback(string(cmd), b.button(cmd)); err != nil {
			return err
		}
	}
	// Aliases and unknown keys still reach the dispatcher.
	reg.SetCallbackNotFound(func(c tele.Context) error {
		key, _ := callbacks.Parse(c.Callback())
		cmd, ok := flow.ParseCommand(key)
		if !ok {
			cmd = flow.Command(key)
		}
		return b.button(cmd)(c)
	})

	for _, sc := range slashCommands {
		cmd := sc.cmd
		err := reg.RegisterCommand(sc.name, commands.Command{
			Description: sc.description,
			Handler: func(c tele.Context) error {
				return b.handle(c, flow.Event{Kind: flow.EventButton, Command: cmd})
			},
		})
		if err != nil {
			return err
		}
	}
	return reg.RegisterCommand("/stats", commands.Command{
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     b.stats,
	})
}

func (b *Bot) button(cmd flow.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		_, payload := callbacks.Parse(c.Callback())
		return b.handle(c, flow.Event{Kind: flow.EventButton, Command: cmd, Payload: payload})
	}
}

func (b *Bot) InProgress(userID int64) bool {
	return b.flow.InProgress(userID)
}

func (b *Bot) HandleText(c tele.Context) error {
	return b.handle(c, flow.Event{Kind: flow.EventText, Text: c.Text()})
}

func (b *Bot) HandleDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}
	return b.handle(c, flow.Event{Kind: flow.EventDocument, Upload: documentUpload(c.Bot(), msg.Document)})
}

func (b *Bot) HandlePhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	return b.handle(c, flow.Event{Kind: flow.EventPhoto, Upload: photoUpload(c.Bot(), msg.Photo)})
}

func (b *Bot) handle(c tele.Context, ev flow.Event) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ev.UserID = sender.ID
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	ctx := helpers.BuildContext(c)
	return b.flow.Handle(ctx, ev, &responder{c: c, labels: b.texts})
}

func (b *Bot) stats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	st, err := b.flow.Stats(ctx)
	if err != nil {
		logger.Warn(ctx, "transport", "stats",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	lang := b.flow.Language(c.Sender().ID)
	text := b.texts.Lookup(lang, "stats", map[string]any{
		"subscribers": st.Subscribers,
		"active":      st.Active,
		"operations":  st.Operations,
		"failed":      st.Failed,
	})
	return helpers.SendMD(c, text)
}

type downloader interface {
	Download(file *tele.File, localFilename string) error
}

func documentUpload(d downloader, doc *tele.Document) *staging.Upload {
	file := doc.File
	return &staging.Upload{
		FileName: doc.FileName,
		MIME:     doc.MIME,
		Size:     int64(file.FileSize),
		Fetch: func(_ context.Context, dst string) error {
			return d.Download(&file, dst)
		},
	}
}

// photoUpload takes the size telebot picked, which is the largest one sent.
func photoUpload(d downloader, p *tele.Photo) *staging.Upload {
	file := p.File
	return &staging.Upload{
		FileName: "photo.jpg",
		MIME:     "image/jpeg",
		Size:     int64(file.FileSize),
		Fetch: func(_ context.Context, dst string) error {
			return d.Download(&file, dst)
		},
	}
}

// responder replies in the chat the update came from.
type responder struct {
	c      tele.Context
	labels keyboards.Labels
}

func (r *responder) Send(rep flow.Reply) error {
	return helpers.SendMD(r.c, rep.Text, keyboards.Build(r.labels, rep))
}

func (r *responder) Edit(rep flow.Reply) error {
	if r.c.Callback() == nil {
		return r.Send(rep)
	}
	return helpers.EditOrSendMD(r.c, rep.Text, keyboards.Build(r.labels, rep))
}

func (r *responder) SendFile(path, name, caption string) error {
	return helpers.SendDocument(r.c, path, name, caption)
}
