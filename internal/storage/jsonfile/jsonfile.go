// Package jsonfile stores each key as a JSON file in the data directory.
//
// Writes go to a temp file that is renamed into place, under an advisory
// lock per key, so readers never see a torn document and two processes
// never interleave writes.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cd3-tool/cd3/internal/lockfile"
	"github.com/cd3-tool/cd3/internal/storage"
)

// DefaultLockTimeout bounds how long a write waits for another process.
const DefaultLockTimeout = 5 * time.Second

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Backend is a directory of JSON documents.
type Backend struct {
	dir         string
	lockTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithLockTimeout sets how long operations wait for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(b *Backend) { b.lockTimeout = d }
}

// Open returns a backend rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	b := &Backend{dir: dir, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Dir returns the data directory.
func (b *Backend) Dir() string {
	return b.dir
}

// FileName maps a key to its document file name: "cd3.state" is stored
// as "state.json".
func FileName(key string) string {
	name := strings.TrimPrefix(key, "cd3.")
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	return name + ".json"
}

// Path returns the document path for key.
func (b *Backend) Path(key string) string {
	return filepath.Join(b.dir, FileName(key))
}

func (b *Backend) lockPath(key string) string {
	return filepath.Join(b.dir, "."+strings.TrimSuffix(FileName(key), ".json")+".lock")
}

func (b *Backend) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("jsonfile backend closed")
	}
	return nil
}

// Get implements storage.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	lock, err := lockfile.Shared(ctx, b.lockPath(key), b.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	// #nosec G304 - path is built from a sanitized key inside the data dir
	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put implements storage.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	lock, err := lockfile.Exclusive(ctx, b.lockPath(key), b.lockTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	target := b.Path(key)
	tmp, err := os.CreateTemp(b.dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("rename into %s: %w", target, err)
	}
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	lock, err := lockfile.Exclusive(ctx, b.lockPath(key), b.lockTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if err := os.Remove(b.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
