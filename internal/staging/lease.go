package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/m3rciful/pdfbot/core/logger"
)

// Lease holds staged paths until Release deletes them.
// Release is idempotent; paths added after it are deleted on the next call.
type Lease struct {
	stager *Stager

	mu    sync.Mutex
	paths []string
}

// Add puts more paths under the lease. Empty and duplicate paths are ignored.
func (l *Lease) Add(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range paths {
		if p == "" || l.holds(p) {
			continue
		}
		l.paths = append(l.paths, p)
	}
}

func (l *Lease) holds(p string) bool {
	for _, cur := range l.paths {
		if cur == p {
			return true
		}
	}
	return false
}

// Keep takes path out of the lease so Release leaves it on disk.
func (l *Lease) Keep(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.paths[:0]
	for _, p := range l.paths {
		if p != path {
			out = append(out, p)
		}
	}
	l.paths = out
}

// Paths returns the paths currently held.
func (l *Lease) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// Release deletes every held path once. A path that no longer exists counts
// as released; other failures are logged.
func (l *Lease) Release(ctx context.Context) {
	l.mu.Lock()
	paths := l.paths
	l.paths = nil
	l.mu.Unlock()

	removed := 0
	for _, p := range paths {
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		isDir := err == nil && info.IsDir()
		if isDir {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		switch {
		case err == nil:
			if !isDir {
				removed++
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			logger.Warn(ctx, "staging", "cleanup",
				slog.String("status", "fail"),
				slog.String("path", p),
				slog.String("err", err.Error()),
			)
		}
	}
	if removed > 0 && l.stager != nil {
		l.stager.onChange(-removed)
	}
	if len(paths) > 0 {
		logger.Debug(ctx, "staging", "cleanup",
			slog.Int("count", len(paths)),
		)
	}
}
