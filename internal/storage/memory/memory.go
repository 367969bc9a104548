// Package memory implements an in-memory storage backend for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/cd3-tool/cd3/internal/storage"
)

var errClosed = errors.New("memory backend closed")

// Backend is a map guarded by a mutex.
type Backend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
	puts   int
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

// Get implements storage.Backend.
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, errClosed
	}
	v, ok := b.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements storage.Backend.
func (b *Backend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errClosed
	}
	b.data[key] = append([]byte(nil), value...)
	b.puts++
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errClosed
	}
	delete(b.data, key)
	return nil
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Puts returns how many writes the backend has accepted.
func (b *Backend) Puts() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.puts
}
