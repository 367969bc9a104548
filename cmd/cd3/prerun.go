package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/debug"
	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/telemetry"
	"github.com/cd3-tool/cd3/internal/ui"
)

// bootstrap runs before every command: config, logging, telemetry, then
// the store and the engine for commands that need a session.
func bootstrap(cmd *cobra.Command) error {
	setupSignalContext()

	if err := config.Initialize(); err != nil {
		return err
	}
	applyViperOverrides(cmd)

	l, err := debug.Init(verboseFlag, quietFlag)
	if err != nil {
		return err
	}
	logger = l
	ui.SetNoColor(noColorFlag)

	if err := telemetry.Init(rootCtx, "cd3", Version); err != nil {
		WarnError("telemetry disabled: %v", err)
	}

	if !needsStore(cmd) {
		return nil
	}
	return openSession(rootCtx)
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyViperOverrides fills flags that were not given on the command line
// from viper (config file and CD3_* env). Flags beat viper beat defaults.
func applyViperOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("json") {
		jsonOutput = config.GetBool("json")
	}
	if !flags.Changed("db") && dbPath == "" {
		dbPath = config.GetString("db")
	}
	backendFlagSet = flags.Changed("backend")
	if !backendFlagSet && backendName == "" {
		backendName = config.GetString("backend")
	}
	if !flags.Changed("no-color") {
		noColorFlag = config.GetBool("no-color")
	}
}

// backendFlagSet records an explicit --backend, which beats the data
// directory's own config.yaml.
var backendFlagSet bool

// resolveDataDir honours --db, then walks up for .cd3.
func resolveDataDir() (string, error) {
	if dbPath != "" {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return "", fmt.Errorf("resolve --db: %w", err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return "", fmt.Errorf("data directory %s does not exist (run 'cd3 init')", abs)
		}
		return abs, nil
	}
	return config.FindDataDir()
}

func openSession(ctx context.Context) error {
	dir, err := resolveDataDir()
	if err != nil {
		if errors.Is(err, config.ErrNoDataDir) {
			return hintError{err: err, hint: "Run 'cd3 init' to start a backlog in this directory"}
		}
		return err
	}
	dataDir = dir
	local := config.LoadLocalConfig(dir)

	name := backendName
	if !backendFlagSet && local.Backend != "" {
		name = local.Backend
	}
	b, err := openBackend(ctx, dir, name, local)
	if err != nil {
		return err
	}
	store = storage.NewStore(telemetry.WrapBackend(b))

	obs := newCLIObserver(os.Stderr)
	e, report, err := engine.Open(ctx, store,
		engine.WithLogger(logger),
		engine.WithIDPrefix(local.Prefix),
		engine.WithAnalytics(telemetry.NewAnalytics(logger)),
		engine.WithObserver(obs),
	)
	if err != nil {
		return err
	}
	obs.prime(e.OverLimit())
	if report.Changed() {
		logger.Debug("session repaired", zap.Strings("changes", report.Changes))
	}
	eng = e
	return nil
}

// teardown closes the store and flushes logs and telemetry. Safe to call
// more than once.
func teardown() {
	if store != nil {
		if err := store.Close(); err != nil {
			WarnError("close store: %v", err)
		}
		store = nil
	}
	eng = nil
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Shutdown(shutdownCtx)
	cancel()
	debug.Sync()
	if rootCancel != nil {
		rootCancel()
		rootCancel = nil
	}
}
