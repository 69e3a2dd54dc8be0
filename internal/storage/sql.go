// internal/storage/sql.go
package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/pkg/types"
)

// SQLStore is a Store backed by database/sql. The dialect decides placeholder
// syntax, schema and the upsert clause.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	now     func() time.Time
	logger  zerolog.Logger
}

func newSQLStore(db *sql.DB, d dialect, table string, logger zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		table:   table,
		now:     time.Now,
		logger:  logger,
	}
}

func configurePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}

// migrate creates the table and its indexes when missing.
func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table '%s': %w", s.table, err)
		}
	}
	return nil
}

// Upsert implements Store.
func (s *SQLStore) Upsert(ctx context.Context, r types.Recipe) (*types.Recipe, error) {
	rec := prepare(r, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence(err, "begin transaction")
	}
	defer tx.Rollback()

	var image sql.NullString
	if rec.Image != nil {
		image = sql.NullString{String: *rec.Image, Valid: true}
	}
	_, err = tx.ExecContext(ctx, s.dialect.upsertQuery(s.table),
		rec.Title,
		s.dialect.list(&rec.Ingredients),
		s.dialect.list(&rec.Instructions),
		image,
		rec.URL,
		rec.ScrapedAt,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Persistence(err, "upsert %s", rec.URL)
	}

	stored, err := s.scanOne(tx.QueryRowContext(ctx, s.dialect.selectByURLQuery(s.table), rec.URL))
	if err != nil {
		return nil, apperrors.Persistence(err, "reload %s", rec.URL)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence(err, "commit upsert of %s", rec.URL)
	}

	s.logger.Debug().Str("url", stored.URL).Int64("id", stored.ID).Msg("recipe saved")
	return stored, nil
}

// ListAll implements Store.
func (s *SQLStore) ListAll(ctx context.Context) ([]types.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listQuery(s.table))
	if err != nil {
		return nil, listError(err)
	}
	defer rows.Close()

	recipes := []types.Recipe{}
	for rows.Next() {
		r, err := s.scanOne(rows)
		if err != nil {
			return nil, listError(err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, listError(err)
	}
	return recipes, nil
}

// DeleteByURL implements Store.
func (s *SQLStore) DeleteByURL(ctx context.Context, url string) (*types.Recipe, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, deleteError(err, url)
	}
	defer tx.Rollback()

	existing, err := s.scanOne(tx.QueryRowContext(ctx, s.dialect.selectByURLQuery(s.table), url))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, deleteError(err, url)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.deleteQuery(s.table), url); err != nil {
		return nil, deleteError(err, url)
	}
	if err := tx.Commit(); err != nil {
		return nil, deleteError(err, url)
	}

	s.logger.Debug().Str("url", url).Msg("recipe deleted")
	return existing, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLStore) scanOne(row rowScanner) (*types.Recipe, error) {
	var (
		r     types.Recipe
		image sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&r.Title,
		s.dialect.list(&r.Ingredients),
		s.dialect.list(&r.Instructions),
		&image,
		&r.URL,
		&r.ScrapedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		img := image.String
		r.Image = &img
	}
	r.ScrapedAt = r.ScrapedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return &r, nil
}

func listError(err error) error {
	return apperrors.Persistence(err, "list recipes").WithUserMessage(apperrors.MsgListFailed)
}

func deleteError(err error, url string) error {
	return apperrors.Persistence(err, "delete %s", url).WithUserMessage(apperrors.MsgDeleteFailed)
}
