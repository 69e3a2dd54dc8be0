// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/valpere/recipevault/internal/utils"
)

// NewPostgresStore connects to PostgreSQL. Lists are stored as TEXT[].
func NewPostgresStore(ctx context.Context, cfg Config) (*SQLStore, error) {
	cfg = cfg.withDefaults()
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	configurePool(db, cfg)

	return openSQLStore(ctx, db, postgresDialect, cfg, "postgres-store")
}

// openSQLStore verifies the connection and prepares the schema.
func openSQLStore(ctx context.Context, db *sql.DB, d dialect, cfg Config, component string) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	logger := utils.NewComponentLogger(component)
	store := newSQLStore(db, d, cfg.Table, logger)
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("table", cfg.Table).Msg("store ready")
	return store, nil
}
