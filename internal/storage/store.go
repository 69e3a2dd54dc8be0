// internal/storage/store.go

// Package storage persists recipes keyed by their source URL.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/recipevault/pkg/types"
)

// Store persists recipes. A record is identified by its URL; saving a URL
// that already exists keeps the stored content and only refreshes ScrapedAt.
type Store interface {
	// Upsert saves r and returns the stored record.
	Upsert(ctx context.Context, r types.Recipe) (*types.Recipe, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]types.Recipe, error)
	// DeleteByURL removes the record and returns it, or nil when the URL is
	// not stored.
	DeleteByURL(ctx context.Context, url string) (*types.Recipe, error)
	Ping(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMongoDB  = "mongodb"
	DriverMemory   = "memory"
)

// DefaultTable is the table or collection used when none is configured.
const DefaultTable = "recipes"

// Config selects and configures a store.
type Config struct {
	Driver          string        `yaml:"driver" json:"driver"`
	DSN             string        `yaml:"dsn" json:"dsn"`
	Database        string        `yaml:"database,omitempty" json:"database,omitempty"` // mongodb only
	Table           string        `yaml:"table" json:"table"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// NormalizeDriver maps driver aliases to the canonical names.
func NormalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "mysql", "mariadb":
		return DriverMySQL
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "mongodb", "mongo":
		return DriverMongoDB
	case "memory", "mem", "":
		return DriverMemory
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func (c Config) withDefaults() Config {
	c.Driver = NormalizeDriver(c.Driver)
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Database == "" {
		c.Database = "recipevault"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg = cfg.withDefaults()
	if err := ValidateIdentifier(cfg.Table); err != nil {
		return nil, err
	}
	if cfg.Driver != DriverMemory && cfg.DSN == "" {
		return nil, fmt.Errorf("%s: connection string is required", cfg.Driver)
	}

	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg)
	case DriverMySQL:
		return NewMySQLStore(ctx, cfg)
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg)
	case DriverMongoDB:
		return NewMongoStore(ctx, cfg)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier rejects table and collection names that would need
// quoting beyond the dialect's identifier quotes.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// prepare fills the timestamps and copies the lists of a record about to be
// written.
func prepare(r types.Recipe, now time.Time) types.Recipe {
	now = now.UTC().Truncate(time.Microsecond)
	if r.ScrapedAt.IsZero() {
		r.ScrapedAt = now
	}
	r.ScrapedAt = r.ScrapedAt.UTC().Truncate(time.Microsecond)
	r.CreatedAt = now
	r.Ingredients = append([]string(nil), r.Ingredients...)
	r.Instructions = append([]string(nil), r.Instructions...)
	r.Provenance = nil
	r.ID = 0
	return r
}
