// Package cd3 provides a minimal public API for driving a CD3 backlog from
// Go without the cd3 command.
//
// A Session pairs the prioritization engine with the storage it persists
// to. Every mutating method returns a Result and an error whose Kind
// tells validation, stage and persistence failures apart.
package cd3

import (
	"context"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/storage/jsonfile"
	"github.com/cd3-tool/cd3/internal/storage/memory"
	"github.com/cd3-tool/cd3/internal/types"
)

// Core types
type (
	Engine           = engine.Engine
	Option           = engine.Option
	Result           = engine.Result
	ErrorKind        = engine.Kind
	Item             = types.Item
	AppState         = types.AppState
	Stage            = types.Stage
	Category         = types.Category
	Level            = types.Level
	ConfidenceSurvey = types.ConfidenceSurvey
)

// Stage constants
const (
	StageItemListing = types.StageItemListing
	StageUrgency     = types.StageUrgency
	StageValue       = types.StageValue
	StageDuration    = types.StageDuration
	StageResults     = types.StageResults
)

// Category constants
const (
	CategoryUrgency  = types.CategoryUrgency
	CategoryValue    = types.CategoryValue
	CategoryDuration = types.CategoryDuration
)

// Level constants
const (
	LevelLow    = types.LevelLow
	LevelMedium = types.LevelMedium
	LevelHigh   = types.LevelHigh
)

// Engine options
var (
	WithLogger   = engine.WithLogger
	WithClock    = engine.WithClock
	WithIDPrefix = engine.WithIDPrefix
	WithObserver = engine.WithObserver
)

// KindOf reports the kind of an error returned by a Session method.
var KindOf = engine.KindOf

// Session is an engine bound to its store.
type Session struct {
	*engine.Engine
	store *storage.Store
}

// OpenDir loads the session kept in a cd3 data directory by the file
// backend, creating the directory if needed. Saved data is repaired on
// load the same way the cd3 command does.
func OpenDir(ctx context.Context, dir string, opts ...Option) (*Session, error) {
	b, err := jsonfile.Open(dir)
	if err != nil {
		return nil, err
	}
	return open(ctx, storage.NewStore(b), opts)
}

// OpenMemory starts an empty session that is never written to disk.
func OpenMemory(ctx context.Context, opts ...Option) (*Session, error) {
	return open(ctx, storage.NewStore(memory.New()), opts)
}

func open(ctx context.Context, s *storage.Store, opts []Option) (*Session, error) {
	e, _, err := engine.Open(ctx, s, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return &Session{Engine: e, store: s}, nil
}

// Close releases the store.
func (s *Session) Close() error {
	return s.store.Close()
}

// FindDataDir walks up from the working directory to the nearest .cd3
// directory. CD3_DIR overrides the search.
func FindDataDir() (string, error) {
	return config.FindDataDir()
}
