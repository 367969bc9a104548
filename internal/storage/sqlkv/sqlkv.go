// Package sqlkv stores cd3 documents in a single SQL key/value table.
//
// Two dialects are supported:
//   - sqlite: a local database file via modernc.org/sqlite (no cgo)
//   - dolt: a running dolt sql-server reached over the MySQL protocol, with
//     optional version-control commits after every write
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cd3-tool/cd3/internal/storage"
)

// Dialect selects the SQL flavour.
type Dialect string

// Supported dialects
const (
	DialectSQLite Dialect = "sqlite"
	DialectDolt   Dialect = "dolt"
)

// Config holds connection settings.
type Config struct {
	Dialect Dialect

	// sqlite
	Path string

	// dolt sql-server
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	AutoCommit bool // CALL DOLT_COMMIT after each write
}

// Backend implements storage.Backend on a kv table.
type Backend struct {
	db      *sql.DB
	cfg     Config
	closed  atomic.Bool
	dialect dialect
}

// Open connects, creating the database (dolt) and the kv table if needed.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch cfg.Dialect {
	case DialectSQLite:
		db, err = openSQLite(ctx, cfg)
		d = sqliteDialect{}
	case DialectDolt:
		db, err = openDolt(ctx, cfg)
		d = doltDialect{}
	default:
		return nil, fmt.Errorf("unknown sql dialect %q (valid: sqlite, dolt)", cfg.Dialect)
	}
	if err != nil {
		return nil, err
	}

	b := &Backend{db: db, cfg: cfg, dialect: d}
	if err := b.withRetry(ctx, func() error {
		_, err := db.ExecContext(ctx, d.schema())
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return b, nil
}

// DB exposes the underlying connection pool.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Dialect returns the configured dialect.
func (b *Backend) Dialect() Dialect {
	return b.cfg.Dialect
}

func (b *Backend) checkOpen() error {
	if b.closed.Load() {
		return errors.New("sql backend closed")
	}
	return nil
}

// Get implements storage.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	var v []byte
	err := b.withRetry(ctx, func() error {
		return b.db.QueryRowContext(ctx, "SELECT v FROM kv WHERE k = ?", key).Scan(&v)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Put implements storage.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	now := time.Now().UTC()
	err := b.withRetry(ctx, func() error {
		_, err := b.db.ExecContext(ctx, b.dialect.upsert(), key, value, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return b.commit(ctx, "cd3: update "+key)
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	err := b.withRetry(ctx, func() error {
		_, err := b.db.ExecContext(ctx, "DELETE FROM kv WHERE k = ?", key)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return b.commit(ctx, "cd3: delete "+key)
}

// commit records a Dolt commit when auto-commit is on. An empty working
// set is not an error.
func (b *Backend) commit(ctx context.Context, msg string) error {
	if b.cfg.Dialect != DialectDolt || !b.cfg.AutoCommit {
		return nil
	}
	err := b.withRetry(ctx, func() error {
		_, err := b.db.ExecContext(ctx, "CALL DOLT_COMMIT('-Am', ?)", msg)
		return err
	})
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "nothing to commit") {
		return fmt.Errorf("dolt commit: %w", err)
	}
	return nil
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
