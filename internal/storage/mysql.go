// internal/storage/mysql.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// NewMySQLStore connects to MySQL or MariaDB. Lists are stored as JSON.
func NewMySQLStore(ctx context.Context, cfg Config) (*SQLStore, error) {
	cfg = cfg.withDefaults()
	dsn, err := mysqlDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	configurePool(db, cfg)

	return openSQLStore(ctx, db, mysqlDialect, cfg, "mysql-store")
}

// mysqlDSN forces DATETIME columns to decode to time.Time in UTC.
func mysqlDSN(raw string) (string, error) {
	mc, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}
