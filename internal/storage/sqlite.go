// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteParams = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// NewSQLiteStore opens a SQLite file, creating its directory when needed.
// Lists are stored as JSON text.
func NewSQLiteStore(ctx context.Context, cfg Config) (*SQLStore, error) {
	cfg = cfg.withDefaults()
	path, dsn := sqliteDSN(cfg.DSN)

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return openSQLStore(ctx, db, sqliteDialect, cfg, "sqlite-store")
}

// sqliteDSN accepts a bare path or a file: URI and appends the default
// connection parameters when the DSN carries none.
func sqliteDSN(raw string) (path, dsn string) {
	path = strings.TrimPrefix(raw, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i], raw
	}
	return path, raw + "?" + sqliteParams
}
