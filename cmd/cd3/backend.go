package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cd3-tool/cd3/internal/config"
	"github.com/cd3-tool/cd3/internal/storage"
	"github.com/cd3-tool/cd3/internal/storage/jsonfile"
	"github.com/cd3-tool/cd3/internal/storage/memory"
	"github.com/cd3-tool/cd3/internal/storage/sqlkv"
)

// Backend names accepted by --backend and the backend config key.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
	BackendMemory = "memory"
)

// SQLiteFileName is the database file inside the data directory.
const SQLiteFileName = "cd3.db"

func validBackend(name string) bool {
	switch name {
	case BackendFile, BackendSQLite, BackendDolt, BackendMemory:
		return true
	}
	return false
}

// openBackend builds the storage backend for dir. The local config file
// can pin dolt connection settings; viper values fill the rest.
func openBackend(ctx context.Context, dir, name string, local *config.LocalConfig) (storage.Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = BackendFile
	}
	switch name {
	case BackendFile:
		return jsonfile.Open(dir, jsonfile.WithLockTimeout(config.GetDuration("lock-timeout")))
	case BackendSQLite:
		return sqlkv.Open(ctx, sqlkv.Config{
			Dialect: sqlkv.DialectSQLite,
			Path:    filepath.Join(dir, SQLiteFileName),
		})
	case BackendDolt:
		return sqlkv.Open(ctx, doltConfig(local))
	case BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (valid: file, sqlite, dolt, memory)", name)
}

func doltConfig(local *config.LocalConfig) sqlkv.Config {
	cfg := sqlkv.Config{
		Dialect:    sqlkv.DialectDolt,
		Host:       config.GetString("dolt.host"),
		Port:       config.GetInt("dolt.port"),
		User:       config.GetString("dolt.user"),
		Password:   config.GetString("dolt.password"),
		Database:   config.GetString("dolt.database"),
		AutoCommit: config.GetBool("dolt.auto-commit"),
	}
	if local == nil {
		return cfg
	}
	d := local.Dolt
	if d.Host != "" && !config.IsSet("dolt.host") {
		cfg.Host = d.Host
	}
	if d.Port != 0 && !config.IsSet("dolt.port") {
		cfg.Port = d.Port
	}
	if d.User != "" && !config.IsSet("dolt.user") {
		cfg.User = d.User
	}
	if d.Database != "" && !config.IsSet("dolt.database") {
		cfg.Database = d.Database
	}
	if d.AutoCommit != nil && !config.IsSet("dolt.auto-commit") {
		cfg.AutoCommit = *d.AutoCommit
	}
	return cfg
}
