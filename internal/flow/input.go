package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
	"github.com/m3rciful/pdfbot/internal/staging"
)

const maxPasswordLen = 128

// compressionLevels maps the numbers offered in the level prompt.
var compressionLevels = map[int]string{
	1: ops.LevelLow,
	2: ops.LevelMedium,
	3: ops.LevelHigh,
}

var wrongTypeKeys = map[Accept]string{
	AcceptPDF:    "wrong_type_pdf",
	AcceptImage:  "wrong_type_image",
	AcceptOffice: "wrong_type_office",
}

var invalidTextKeys = map[Accept]string{
	AcceptPages:    "invalid_pages",
	AcceptAngle:    "invalid_rotation",
	AcceptLevel:    "invalid_level",
	AcceptPassword: "invalid_password",
}

// withPrompt appends the prompt of st to a rejection so the user knows what is still expected.
func (d *Dispatcher) withPrompt(lang, key string, st state.State) Reply {
	r := d.reply(lang, key, nil, MenuCancel)
	if p := PromptFor(st); p != "" {
		r.Text += "\n\n" + d.text(lang, p, nil)
	}
	return r
}

func (d *Dispatcher) onUpload(ctx context.Context, ev Event, out Responder) (*job, error) {
	user := ev.UserID
	lang := d.store.Language(user)
	st := d.store.GetState(user)
	in := Classify(ev.Kind, ev.Upload)

	tr, ok := Lookup(st, ChannelUpload)
	if !ok {
		// The state is waiting for text.
		return nil, out.Send(d.withPrompt(lang, "invalid_input", st))
	}
	if tr.Action == ActionConvert {
		return d.convert(ctx, ev, out, lang, in)
	}
	if !tr.Accept.admits(in) {
		return nil, out.Send(d.withPrompt(lang, wrongTypeKeys[tr.Accept], st))
	}

	var held int
	if tr.Action == ActionAppend {
		held = len(d.store.Files(user))
		if limit := d.limitFor(st); held >= limit {
			r := d.reply(lang, "limit_reached", map[string]any{"limit": limit}, appendMenu(st))
			r.Count = held
			return nil, out.Send(r)
		}
	}

	path, err := d.stage(ctx, ev, out, lang, in, func() Reply {
		return d.withPrompt(lang, wrongTypeKeys[tr.Accept], st)
	})
	if path == "" {
		return nil, err
	}

	switch tr.Action {
	case ActionAppend:
		n := d.store.AddFile(user, state.StagedFile{Path: path, Role: in.String()})
		key := "pdfs_count"
		if st == StateCollectingImages {
			key = "images_count"
		}
		r := d.reply(lang, key, map[string]any{"count": n}, appendMenu(st))
		r.Count = n
		return nil, out.Send(r)

	case ActionHold:
		d.store.SetParam(user, ParamTarget, path)
		d.store.SetParam(user, ParamTargetName, ev.Upload.FileName)
		d.setState(ctx, user, st, tr.Next)
		return nil, out.Send(d.reply(lang, tr.Prompt, nil, MenuCancel))
	}

	// ActionRun: a held target (watermark) comes first, the upload second.
	sess := d.store.Get(user)
	inputs := []string{path}
	name := ev.Upload.FileName
	if target := sess.Params[ParamTarget]; target != "" {
		inputs = []string{target, path}
		name = sess.Params[ParamTargetName]
	}
	return d.take(ctx, out, st, user, lang, tr.Op, inputs, map[string]string{ops.ParamFileName: name}), nil
}

func (d *Dispatcher) limitFor(st state.State) int {
	if st == StateCollectingImages {
		return d.limits.MaxImages
	}
	return d.limits.MaxMergeFiles
}

// convert handles uploads outside any flow.
func (d *Dispatcher) convert(ctx context.Context, ev Event, out Responder, lang string, in Input) (*job, error) {
	var op ops.Op
	switch in {
	case InputPDF:
		return nil, out.Send(d.reply(lang, "choose_action", nil, MenuMain))
	case InputImage:
		op = ops.OpImagesToPDF
	case InputOffice:
		op = ops.OpConvertDocument
	default:
		return nil, out.Send(d.reply(lang, "unsupported", nil, MenuMain))
	}
	path, err := d.stage(ctx, ev, out, lang, in, func() Reply {
		return d.reply(lang, "unsupported", nil, MenuMain)
	})
	if path == "" {
		return nil, err
	}
	params := map[string]string{ops.ParamFileName: ev.Upload.FileName}
	return d.take(ctx, out, state.StateIdle, ev.UserID, lang, op, []string{path}, params), nil
}

// stage downloads the upload and checks its content. An empty path means a
// reply has already been sent and the session is unchanged.
func (d *Dispatcher) stage(ctx context.Context, ev Event, out Responder, lang string, in Input, mismatch func() Reply) (string, error) {
	path, err := d.stager.Stage(ctx, ev.UserID, *ev.Upload)
	if errors.Is(err, staging.ErrTooLarge) {
		args := map[string]any{"max_size": humanSize(d.stager.MaxSize())}
		return "", out.Send(d.reply(lang, "file_too_large", args, MenuCancel))
	}
	if err != nil {
		logger.Error(ctx, "flow", "upload.stage",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.UserID),
			slog.String("err", err.Error()),
		)
		return "", errors.Join(err, out.Send(d.reply(lang, "error", nil, MenuCancel)))
	}
	if !sniff(path, in) {
		d.stager.Discard(ctx, path)
		logger.Info(ctx, "flow", "upload.rejected",
			slog.Int64("user_id", ev.UserID),
			slog.String("declared", in.String()),
		)
		return "", out.Send(mismatch())
	}
	return path, nil
}

func (d *Dispatcher) onText(ctx context.Context, ev Event, out Responder) (*job, error) {
	user := ev.UserID
	lang := d.store.Language(user)
	st := d.store.GetState(user)

	tr, ok := Lookup(st, ChannelText)
	if !ok {
		return nil, out.Send(d.reply(lang, "choose_action", nil, MenuMain))
	}
	value, ok := validateText(tr.Accept, ev.Text)
	if !ok {
		return nil, out.Send(d.withPrompt(lang, invalidTextKeys[tr.Accept], st))
	}

	sess := d.store.Get(user)
	target := sess.Params[ParamTarget]
	if target == "" {
		logger.Warn(ctx, "flow", "session.inconsistent",
			slog.Int64("user_id", user),
			slog.String("state", string(st)),
		)
		d.reset(ctx, user)
		return nil, out.Send(d.reply(lang, "error", nil, MenuMain))
	}
	params := map[string]string{
		tr.Param:          value,
		ops.ParamFileName: sess.Params[ParamTargetName],
	}
	j := d.take(ctx, out, st, user, lang, tr.Op, []string{target}, params)
	if tr.Op == ops.OpUnlock {
		j.retry = &retry{state: st, target: target, name: sess.Params[ParamTargetName]}
	}
	return j, nil
}

// validateText normalizes text for a transition. Page specs are checked by the
// adapter; passwords are kept as typed.
func validateText(a Accept, text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	switch a {
	case AcceptPages:
		return trimmed, trimmed != ""
	case AcceptAngle:
		angle, err := ops.ParseAngle(trimmed)
		if err != nil {
			return "", false
		}
		return strconv.Itoa(angle), true
	case AcceptLevel:
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return "", false
		}
		level, ok := compressionLevels[n]
		return level, ok
	case AcceptPassword:
		return text, text != "" && utf8.RuneCountInString(text) <= maxPasswordLen
	}
	return trimmed, trimmed != ""
}
