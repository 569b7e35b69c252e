package ops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"
)

// Tool is an external binary the bot is allowed to run.
// Arguments are passed as a list, never through a shell.
type Tool struct {
	Name string
	Bin  string
}

// Path resolves the binary on PATH.
func (t Tool) Path() (string, error) {
	if t.Bin == "" {
		return "", fmt.Errorf("%w: %s not configured", ErrToolUnavailable, t.Name)
	}
	p, err := exec.LookPath(t.Bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolUnavailable, t.Name, err)
	}
	return p, nil
}

// Available reports whether the binary can be found.
func (t Tool) Available() bool {
	_, err := t.Path()
	return err == nil
}

// Run executes the tool in dir and returns its stderr on failure.
// The process is killed when ctx is done.
func (t Tool) Run(ctx context.Context, dir string, args ...string) error {
	bin, err := t.Path()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	start := time.Now()
	err = cmd.Run()
	took := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", t.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		code := -1
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		logger.Warn(ctx, "ops", "tool.fail",
			slog.String("tool", t.Name),
			slog.Int("code", code),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", logger.SanitizeLimit(strings.TrimSpace(stderr.String()), 300)),
		)
		return fmt.Errorf("%s exited with %d: %w", t.Name, code, err)
	}
	logger.Debug(ctx, "ops", "tool.done",
		slog.String("tool", t.Name),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}
