// Package lockfile provides advisory file locks so that two cd3 processes
// sharing a data directory never interleave writes.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrLockBusy is returned when another process holds a conflicting lock.
var ErrLockBusy = errors.New("lock busy")

// Lock is a held advisory lock. Release it when done.
type Lock struct {
	f    *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. The file itself is left in
// place for the next holder.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := flockUnlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// Exclusive acquires an exclusive lock on path, retrying until timeout or
// ctx is done. A zero timeout tries exactly once.
func Exclusive(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	return acquire(ctx, path, timeout, flockExclusiveNonBlock)
}

// Shared acquires a shared lock on path. Shared holders exclude only
// exclusive ones.
func Shared(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	return acquire(ctx, path, timeout, flockSharedNonBlock)
}

func acquire(ctx context.Context, path string, timeout time.Duration, lock func(*os.File) error) (*Lock, error) {
	// #nosec G304 - path is derived from the data directory
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	try := func() error {
		err := lock(f)
		if err == nil || errors.Is(err, ErrLockBusy) {
			return err
		}
		return backoff.Permanent(err)
	}

	if timeout <= 0 {
		err = try()
	} else {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 10 * time.Millisecond
		bo.MaxInterval = 250 * time.Millisecond
		bo.MaxElapsedTime = timeout
		err = backoff.Retry(try, backoff.WithContext(bo, ctx))
	}
	if err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			return nil, fmt.Errorf("%s: %w", path, ErrLockBusy)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &Lock{f: f, path: path}, nil
}
