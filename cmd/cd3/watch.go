package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/storage"
)

// watchDebounce coalesces the bursts of events one save produces.
const watchDebounce = 300 * time.Millisecond

// isSessionFile reports whether a change to name can alter the session.
func isSessionFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasSuffix(base, ".lock") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	return strings.HasSuffix(base, ".json") || strings.HasPrefix(base, SQLiteFileName)
}

// watchSession re-renders whenever another cd3 process writes the session.
// Each change reloads the engine from store. It returns when ctx ends.
func watchSession(ctx context.Context, dir string, s *storage.Store, render func(*engine.Engine) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }() // Best effort cleanup

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	reload := func() {
		e, _, err := engine.Open(ctx, s, engine.WithLogger(logger))
		if err != nil {
			WarnError("reload: %v", err)
			return
		}
		if err := render(e); err != nil {
			WarnError("render: %v", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isSessionFile(event.Name) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			clearScreen()
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			WarnError("watcher: %v", err)
		}
	}
}

func clearScreen() {
	if !jsonOutput {
		fmt.Fprint(os.Stdout, "\033[H\033[2J")
	}
}
