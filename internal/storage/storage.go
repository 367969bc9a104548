// Package storage provides the persistence contract for cd3.
//
// A Backend is a small key/value store holding raw JSON documents. Store
// layers the cd3 document layout on top of it: one document for the
// session state and one for the item list. The concrete backends live in
// the memory, jsonfile and sqlkv sub-packages.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cd3-tool/cd3/internal/types"
)

// ErrNotFound is returned by a Backend when a key does not exist.
var ErrNotFound = errors.New("not found")

// Keys of the stored documents.
const (
	KeyState = "cd3.state"
	KeyItems = "cd3.items"
)

// Backend is the key/value interface every storage implementation satisfies.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value atomically.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store reads and writes the cd3 documents through a Backend.
type Store struct {
	backend Backend
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) load(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// LoadState returns the raw state document, or nil when none is stored.
// The caller migrates and normalizes it.
func (s *Store) LoadState(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, KeyState)
}

// LoadItems returns the raw item list document, or nil when none is stored.
func (s *Store) LoadItems(ctx context.Context) (json.RawMessage, error) {
	return s.load(ctx, KeyItems)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SaveState writes the state document.
func (s *Store) SaveState(ctx context.Context, state *types.AppState) error {
	return s.put(ctx, KeyState, state)
}

// SaveItems writes the item list document.
func (s *Store) SaveItems(ctx context.Context, items []*types.Item) error {
	if items == nil {
		items = []*types.Item{}
	}
	return s.put(ctx, KeyItems, items)
}

// Save writes both documents concurrently.
func (s *Store) Save(ctx context.Context, state *types.AppState, items []*types.Item) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.SaveState(gctx, state) })
	g.Go(func() error { return s.SaveItems(gctx, items) })
	return g.Wait()
}

// ClearState deletes the state document.
func (s *Store) ClearState(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyState); err != nil {
		return fmt.Errorf("clear %s: %w", KeyState, err)
	}
	return nil
}

// ClearItems deletes the item list document.
func (s *Store) ClearItems(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyItems); err != nil {
		return fmt.Errorf("clear %s: %w", KeyItems, err)
	}
	return nil
}

// ClearAll deletes both documents.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.ClearState(ctx); err != nil {
		return err
	}
	return s.ClearItems(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
