// Package lock provides the advisory lock that keeps posting runs from overlapping.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// FileLocker takes an exclusive flock(2)-style lock on Path. The kernel drops
// the lock when the holding process exits, so a crashed run never wedges the
// next one.
type FileLocker struct {
	Path string
}

// New returns a locker for path.
func New(path string) *FileLocker {
	return &FileLocker{Path: path}
}

// Acquire attempts the lock once without waiting. A held lock yields
// ErrLockContention; the returned release func must be called on every exit
// path and is safe to call more than once.
func (l *FileLocker) Acquire(ctx context.Context) (func() error, error) {
	if l == nil || strings.TrimSpace(l.Path) == "" {
		return nil, errors.Mark(fmt.Errorf("lock path is empty"), errors.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(l.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Mark(fmt.Errorf("create lock directory: %w", err), errors.ErrStateUnavailable)
		}
	}

	fl := flock.New(l.Path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("lock %s: %w", l.Path, err), errors.ErrStateUnavailable)
	}
	if !ok {
		return nil, errors.Mark(fmt.Errorf("lock %s is held by another run", l.Path), errors.ErrLockContention)
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("unlock %s: %w", l.Path, err)
		}
		return nil
	}, nil
}
