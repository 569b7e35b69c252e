package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	units "github.com/docker/go-units"

	"github.com/m3rciful/pdfbot/core/logger"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
)

// job is an operation taken from a session. The session is already idle
// when the job runs, so the job owns its input files.
type job struct {
	user   int64
	lang   string
	op     ops.Op
	inputs []string
	params map[string]string
	retry  *retry
}

// retry restores a password prompt when unlocking fails on a wrong password.
type retry struct {
	state  state.State
	target string
	name   string
}

var progressKeys = map[ops.Op]string{
	ops.OpMerge:           "merging_pdfs",
	ops.OpSplit:           "splitting_pdf",
	ops.OpExtractPages:    "extracting_pages",
	ops.OpRemovePages:     "removing_pages",
	ops.OpExtractImages:   "extracting_images",
	ops.OpExtractText:     "extracting_text",
	ops.OpCompress:        "compressing_pdf",
	ops.OpRepair:          "repairing_pdf",
	ops.OpImagesToPDF:     "creating_pdf",
	ops.OpConvertDocument: "converting",
	ops.OpPDFToImages:     "rendering_pages",
	ops.OpRotate:          "rotating_pdf",
	ops.OpPageNumbers:     "adding_page_numbers",
	ops.OpWatermark:       "adding_watermark",
	ops.OpUnlock:          "unlocking_pdf",
	ops.OpProtect:         "protecting_pdf",
}

var doneKeys = map[ops.Op]string{
	ops.OpMerge:           "pdfs_merged",
	ops.OpSplit:           "pdf_split",
	ops.OpExtractPages:    "pages_extracted",
	ops.OpRemovePages:     "pages_removed",
	ops.OpExtractImages:   "images_extracted",
	ops.OpExtractText:     "text_extracted",
	ops.OpCompress:        "pdf_compressed",
	ops.OpRepair:          "pdf_repaired",
	ops.OpImagesToPDF:     "pdf_created",
	ops.OpConvertDocument: "pdf_created",
	ops.OpPDFToImages:     "pdf_to_jpg_done",
	ops.OpRotate:          "pdf_rotated",
	ops.OpPageNumbers:     "page_numbers_added",
	ops.OpWatermark:       "watermark_added",
	ops.OpUnlock:          "pdf_unlocked",
	ops.OpProtect:         "pdf_protected",
}

var failureKeys = map[string]string{
	"wrong_password":     "password_incorrect",
	"invalid_pages":      "invalid_pages",
	"unsupported_format": "unsupported_format",
	"empty_result":       "empty_result",
	"tool_unavailable":   "tool_unavailable",
	"timeout":            "timeout",
	"invalid_param":      "invalid_input",
}

// take clears the session and returns the job that will consume inputs.
func (d *Dispatcher) take(ctx context.Context, out Responder, from state.State, user int64, lang string, op ops.Op, inputs []string, params map[string]string) *job {
	d.store.ClearAll(user)
	if from != state.StateIdle {
		d.observer.Transition(from, state.StateIdle)
	}
	logger.Info(ctx, "flow", "op.queued",
		slog.Int64("user_id", user),
		slog.String("op", string(op)),
		slog.String("state", string(from)),
		slog.Int("count", len(inputs)),
	)
	r := d.reply(lang, progressKeys[op], map[string]any{"count": len(inputs)}, MenuNone)
	if err := out.Send(r); err != nil {
		logger.Warn(ctx, "flow", "progress.send",
			slog.String("status", "fail"),
			slog.Int64("user_id", user),
			slog.String("err", err.Error()),
		)
	}
	return &job{user: user, lang: lang, op: op, inputs: inputs, params: params}
}

func (d *Dispatcher) runJob(ctx context.Context, j *job, out Responder) {
	start := time.Now()
	lease := d.stager.Acquire(j.inputs...)
	defer lease.Release(ctx)

	art, err := d.execute(ctx, j, lease.Add)
	took := time.Since(start)
	code := ops.Code(err)
	d.observer.Operation(j.op, code, took)

	attrs := []slog.Attr{
		slog.Int64("user_id", j.user),
		slog.String("op", string(j.op)),
		slog.Duration("duration", logger.RoundMS(took)),
		slog.String("code", code),
	}
	if err != nil {
		d.failed.Add(1)
		logger.Error(ctx, "flow", "op.done", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		if j.retry != nil && errors.Is(err, ops.ErrWrongPassword) && d.restore(ctx, j) {
			lease.Keep(j.retry.target)
			d.deliver(ctx, j, out.Send(d.withPrompt(j.lang, "password_incorrect", j.retry.state)))
			return
		}
		key := failureKeys[code]
		if key == "" {
			key = "error"
		}
		d.deliver(ctx, j, out.Send(d.reply(j.lang, key, nil, MenuMain)))
		return
	}

	d.ran.Add(1)
	logger.Info(ctx, "flow", "op.done", append(attrs,
		slog.String("status", "ok"),
		slog.Int64("size", art.Size),
		slog.Int("pages", art.Pages),
	)...)
	err = out.SendFile(art.Path, art.Name, d.caption(j, art))
	if err != nil {
		d.deliver(ctx, j, err)
		d.deliver(ctx, j, out.Send(d.reply(j.lang, "error", nil, MenuMain)))
	}
}

func (d *Dispatcher) execute(ctx context.Context, j *job, hold func(paths ...string)) (ops.Artifact, error) {
	workDir, err := d.stager.WorkDir(j.user)
	if err != nil {
		return ops.Artifact{}, ops.Wrap(j.op, fmt.Errorf("work dir: %w", err))
	}
	hold(workDir)
	return d.runner.Run(ctx, j.op, ops.Request{Inputs: j.inputs, Params: j.params, WorkDir: workDir})
}

// restore puts an idle user back into the password prompt with the same target.
func (d *Dispatcher) restore(ctx context.Context, j *job) bool {
	unlock, err := d.locks.Lock(context.WithoutCancel(ctx), j.user)
	if err != nil {
		return false
	}
	defer unlock()
	if d.store.GetState(j.user) != state.StateIdle {
		return false
	}
	d.store.SetParam(j.user, ParamTarget, j.retry.target)
	d.store.SetParam(j.user, ParamTargetName, j.retry.name)
	d.setState(ctx, j.user, state.StateIdle, j.retry.state)
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, j *job, err error) {
	if err == nil {
		return
	}
	logger.Warn(ctx, "flow", "result.send",
		slog.String("status", "fail"),
		slog.Int64("user_id", j.user),
		slog.String("op", string(j.op)),
		slog.String("err", err.Error()),
	)
}

func (d *Dispatcher) caption(j *job, art ops.Artifact) string {
	args := map[string]any{
		"pages": art.Pages,
		"size":  humanSize(art.Size),
		"count": len(j.inputs),
	}
	switch j.op {
	case ops.OpCompress:
		args["original"] = humanSize(art.OriginalSize)
		args["compressed"] = humanSize(art.Size)
		args["saved"] = fmt.Sprintf("%.1f", art.Saved())
	case ops.OpRotate:
		args["angle"] = j.params[ops.ParamAngle]
	}
	return d.text(j.lang, doneKeys[j.op], args)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// humanSize renders n in binary units, e.g. "1.5 MB".
func humanSize(n int64) string {
	return units.CustomSize("%.4g %s", float64(n), 1024, sizeUnits)
}
