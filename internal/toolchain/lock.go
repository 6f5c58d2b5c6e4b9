package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Lock serializes toolchain switches and the builds that depend on them, both
// between goroutines of this process and between processes sharing the lock file.
type Lock struct {
	sem        chan struct{}
	file       *flock.Flock
	retryDelay time.Duration
}

// NewLock returns a Lock backed by the file at path. The file and its parent
// directory are created on first acquisition.
func NewLock(path string, retryDelay time.Duration) *Lock {
	return &Lock{
		sem:        make(chan struct{}, 1),
		file:       flock.New(path),
		retryDelay: retryDelay,
	}
}

// Acquire blocks until the lock is held or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *Lock) Acquire(ctx context.Context) (func() error, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := os.MkdirAll(filepath.Dir(l.file.Path()), 0755); err != nil {
		<-l.sem
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	locked, err := l.file.TryLockContext(ctx, l.retryDelay)
	if err != nil || !locked {
		<-l.sem
		if err == nil {
			err = fmt.Errorf("lock %s not acquired", l.file.Path())
		}
		return nil, fmt.Errorf("acquire toolchain lock: %w", err)
	}

	return func() error {
		defer func() { <-l.sem }()
		if err := l.file.Unlock(); err != nil {
			return fmt.Errorf("release toolchain lock: %w", err)
		}
		return nil
	}, nil
}
