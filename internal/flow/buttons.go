package flow

import (
	"context"
	"log/slog"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
)

type navigation struct {
	menu  Menu
	title string
}

var navigations = map[Command]navigation{
	CmdMenuOrganize: {MenuOrganize, "organize_pdf"},
	CmdMenuOptimize: {MenuOptimize, "optimize_pdf"},
	CmdMenuConvert:  {MenuConvert, "convert_pdf"},
	CmdMenuEdit:     {MenuEdit, "edit_pdf"},
	CmdMenuSecurity: {MenuSecurity, "pdf_security"},
	CmdBack:         {MenuMain, "choose_action"},
}

func (d *Dispatcher) onButton(ctx context.Context, ev Event, out Responder) (*job, error) {
	user := ev.UserID
	lang := d.store.Language(user)

	switch ev.Command.Kind() {
	case KindInfo:
		if ev.Command == CmdStart {
			return nil, out.Send(d.reply(lang, "welcome", nil, MenuLanguage))
		}
		return nil, out.Send(d.reply(lang, "help", nil, MenuMain))

	case KindLanguage:
		return nil, d.onLanguage(ctx, user, lang, ev.Payload, out)

	case KindNavigation:
		nav := navigations[ev.Command]
		return nil, out.Edit(d.reply(lang, nav.title, nil, nav.menu))

	case KindStart:
		start, _ := StartFor(ev.Command)
		from := d.store.GetState(user)
		d.reset(ctx, user)
		d.setState(ctx, user, state.StateIdle, start.State)
		logger.Info(ctx, "flow", "flow.start",
			slog.Int64("user_id", user),
			slog.String("command", string(ev.Command)),
			slog.String("state", string(from)),
		)
		return nil, out.Send(d.reply(lang, start.Prompt, nil, MenuCancel))

	case KindTerminal:
		return d.onTerminal(ctx, user, lang, ev.Command, out)

	case KindCancel:
		d.reset(ctx, user)
		return nil, out.Send(d.reply(lang, "operation_cancelled", nil, MenuMain))

	case KindSubscription:
		return nil, d.onSubscription(ctx, user, lang, ev.Command, out)
	}
	return nil, out.Send(d.reply(lang, "coming_soon", nil, MenuPending))
}

func (d *Dispatcher) onLanguage(ctx context.Context, user int64, lang, next string, out Responder) error {
	if next == "" || !d.catalog.Supports(next) {
		return out.Send(d.reply(lang, "choose_language", nil, MenuLanguage))
	}
	d.reset(ctx, user)
	d.store.SetLanguage(user, next)
	logger.Info(ctx, "flow", "language.set",
		slog.Int64("user_id", user),
		slog.String("lang", next),
	)
	r := d.reply(next, "language_changed", nil, MenuMain)
	r.Text += "\n\n" + d.text(next, "choose_action", nil)
	return out.Send(r)
}

func (d *Dispatcher) onTerminal(ctx context.Context, user int64, lang string, cmd Command, out Responder) (*job, error) {
	term, _ := TerminalFor(cmd)
	sess := d.store.Get(user)
	if sess.State != term.From || len(sess.Files) < term.Min {
		menu := MenuCancel
		if sess.State == term.From && len(sess.Files) > 0 {
			menu = appendMenu(sess.State)
		}
		r := d.reply(lang, term.Insufficient, nil, menu)
		r.Count = len(sess.Files)
		return nil, out.Send(r)
	}
	paths := sess.Paths()
	return d.take(ctx, out, sess.State, user, lang, term.Op, paths, nil), nil
}

func (d *Dispatcher) onSubscription(ctx context.Context, user int64, lang string, cmd Command, out Responder) error {
	if d.subs == nil {
		return out.Send(d.reply(lang, "coming_soon", nil, MenuMain))
	}
	var (
		changed bool
		err     error
		key     string
	)
	if cmd == CmdSubscribe {
		changed, err = d.subs.Add(ctx, user)
		key = "already_subscribed"
		if changed {
			key = "subscribed"
		}
	} else {
		changed, err = d.subs.Remove(ctx, user)
		key = "not_subscribed"
		if changed {
			key = "unsubscribed"
		}
	}
	if err != nil {
		logger.Error(ctx, "flow", "subscription",
			slog.String("status", "fail"),
			slog.Int64("user_id", user),
			slog.String("command", string(cmd)),
			slog.String("err", err.Error()),
		)
		return out.Send(d.reply(lang, "error", nil, MenuMain))
	}
	return out.Send(d.reply(lang, key, nil, MenuMain))
}

// appendMenu is the keyboard shown while files accumulate in st.
func appendMenu(st state.State) Menu {
	if st == StateCollectingImages {
		return MenuDone
	}
	return MenuMerge
}
