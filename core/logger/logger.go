// Package logger renders slog records as single-line JSON or key=value events
// with a fixed leading key order, and carries per-update identifiers in context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/pdfbot/core/buildinfo"
	coreconfig "github.com/m3rciful/pdfbot/core/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closers  []io.Closer

	level slog.LevelVar

	// Debug events on hot paths pass one in every debugEvery calls; 0 logs all.
	debugEvery   atomic.Int64
	debugCounter atomic.Int64

	// L is the root logger; nil until InitLogger runs.
	L *slog.Logger
)

// InitLogger installs the structured handler as the slog default. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		level.Set(parseLevel(cfg.Logging.Level))
		debugEvery.Store(int64(parseSample(cfg.Logging.DebugSample)))
		if traceForced() {
			debugEvery.Store(0)
		}

		var out io.Writer
		out, err = openOutputs(cfg.Logging)
		if err != nil {
			return
		}
		L = slog.New(newHandler(handlerOptions{
			level: &level,
			out:   &lockedWriter{w: out},
			json:  pickFormat(cfg.Logging) == "json",
			order: parseOrder(cfg.Logging.KeysOrder),
		}))
		slog.SetDefault(L)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("go_version", runtime.Version()),
			slog.String("version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("profile", profile(cfg.Logging)),
		)
	})
	return err
}

// Shutdown closes file sinks opened by InitLogger.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	closers = nil
	return errors.Join(errs...)
}

// openOutputs returns stdout, teed into a rotated file when a log dir and file are set.
func openOutputs(cfg coreconfig.LoggingConfig) (io.Writer, error) {
	dir := strings.TrimSpace(cfg.Dir)
	file := strings.TrimSpace(cfg.BotFile)
	if dir == "" || file == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v; logging to stdout only", dir, err)
		return os.Stdout, nil
	}
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    orDefault(cfg.MaxSizeMB, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	closeMu.Lock()
	closers = append(closers, rotated)
	closeMu.Unlock()
	return io.MultiWriter(os.Stdout, rotated), nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func profile(cfg coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(cfg.Profile)); p != "" {
		return p
	}
	return "prod"
}

// pickFormat honours an explicit format and otherwise prefers kv for dev profiles.
func pickFormat(cfg coreconfig.LoggingConfig) string {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		return "json"
	case "kv", "text", "pretty":
		return "kv"
	}
	switch profile(cfg) {
	case "debug", "dev":
		return "kv"
	}
	return "json"
}

func parseOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return defaultOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultOrder
	}
	return order
}

// parseSample reads "N" or "1/N" and returns N. "0" or "off" disables sampling.
func parseSample(spec string) int {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "":
		return 50
	case "0", "off", "none":
		return 0
	}
	spec = strings.TrimPrefix(spec, "1/")
	n, err := strconv.Atoi(spec)
	if err != nil || n < 0 {
		return 50
	}
	return n
}

func traceForced() bool {
	for _, k := range []string{"TRACE", "LOG_TRACE"} {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged now.
func ShouldSampleDebug() bool {
	every := debugEvery.Load()
	if every <= 1 {
		return true
	}
	return debugCounter.Add(1)%every == 1
}

// Background is the context for logs that belong to no update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes an event with logg, falling back to the context logger and then L.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns L scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func emit(ctx context.Context, component string, lvl slog.Level, event string, attrs []slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if !logg.Enabled(ctx, lvl) {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelDebug, event, attrs)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelInfo, event, attrs)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelWarn, event, attrs)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelError, event, attrs)
}
