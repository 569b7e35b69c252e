// Package staging owns the files a conversation downloads or produces: it
// stages uploads under unique names, hands them out as leases that are
// released exactly once, and sweeps whatever was left behind.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/pdfbot/core/logger"
)

// ErrTooLarge is returned by Stage when an upload exceeds the size limit.
var ErrTooLarge = errors.New("staging: file too large")

// Upload describes a remote file that can be fetched into the staging directory.
type Upload struct {
	FileName string
	MIME     string
	Size     int64
	// Fetch writes the remote content to dst.
	Fetch func(ctx context.Context, dst string) error
}

// Options configures a Stager.
type Options struct {
	Dir     string
	MaxSize int64
	// OnChange receives +n when files are staged and -n when they are removed.
	OnChange func(delta int)
}

// Stager downloads uploads into a single directory.
type Stager struct {
	dir      string
	maxSize  int64
	onChange func(int)
}

// New creates the staging directory when missing.
func New(opts Options) (*Stager, error) {
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "pdfbot")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("staging: create dir %s: %w", dir, err)
	}
	onChange := opts.OnChange
	if onChange == nil {
		onChange = func(int) {}
	}
	return &Stager{dir: dir, maxSize: opts.MaxSize, onChange: onChange}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string { return s.dir }

// MaxSize returns the per-file limit in bytes; zero means unlimited.
func (s *Stager) MaxSize() int64 { return s.maxSize }

// Stage fetches up into a new file named <user>_<uuid><ext> and returns its path.
// The declared size is checked before the download and the real size after it.
func (s *Stager) Stage(ctx context.Context, userID int64, up Upload) (string, error) {
	if s.maxSize > 0 && up.Size > s.maxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, up.Size, s.maxSize)
	}
	if up.Fetch == nil {
		return "", errors.New("staging: upload has no fetch function")
	}

	name := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), Ext(up.FileName, up.MIME))
	path := filepath.Join(s.dir, name)

	start := time.Now()
	if err := up.Fetch(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("staging: fetch %q: %w", up.FileName, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("staging: stat %s: %w", path, err)
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), s.maxSize)
	}
	s.onChange(1)

	logger.Debug(ctx, "staging", "file.staged",
		slog.Int64("user_id", userID),
		slog.String("path", path),
		slog.Int64("size", info.Size()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return path, nil
}

// WorkDir creates a per-job directory for adapter outputs.
// The caller is expected to add it to a Lease.
func (s *Stager) WorkDir(userID int64) (string, error) {
	dir, err := os.MkdirTemp(s.dir, fmt.Sprintf("%d_job_", userID))
	if err != nil {
		return "", fmt.Errorf("staging: work dir: %w", err)
	}
	return dir, nil
}

// Acquire returns a lease over paths, which may be files or directories.
func (s *Stager) Acquire(paths ...string) *Lease {
	l := &Lease{stager: s}
	l.Add(paths...)
	return l
}

// Discard removes paths right away.
func (s *Stager) Discard(ctx context.Context, paths ...string) {
	s.Acquire(paths...).Release(ctx)
}

// Sweep removes entries of the staging directory last modified before now-maxAge.
func (s *Stager) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("staging: read dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed, files := 0, 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn(ctx, "staging", "sweep.remove",
				slog.String("status", "fail"),
				slog.String("path", path),
				slog.String("err", err.Error()),
			)
			continue
		}
		removed++
		if !e.IsDir() {
			files++
		}
	}
	if files > 0 {
		s.onChange(-files)
	}
	logger.Info(ctx, "staging", "sweep",
		slog.Int("count", removed),
		slog.Duration("max_age", maxAge),
	)
	return removed, nil
}

var mimeExt = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
}

// Ext picks the staged extension from the declared file name, then from the MIME type.
func Ext(fileName, mime string) string {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if ext, ok := mimeExt[strings.ToLower(mime)]; ok {
		return ext
	}
	return ".bin"
}
