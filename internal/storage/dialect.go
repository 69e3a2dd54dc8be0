// internal/storage/dialect.go
package storage

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// listColumn is a string list bound as a query argument and scanned back.
type listColumn interface {
	driver.Valuer
	sql.Scanner
}

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name       string
	quote      func(ident string) string
	bind       func(n int) string
	schema     func(table string) []string
	onConflict string
	list       func(dst *[]string) listColumn
}

var postgresDialect = dialect{
	name:  DriverPostgres,
	quote: doubleQuote,
	bind:  func(n int) string { return "$" + strconv.Itoa(n) },
	schema: func(table string) []string {
		t := doubleQuote(table)
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + t + ` (
				id SERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				ingredients TEXT[],
				instructions TEXT[],
				image VARCHAR(500),
				url VARCHAR(500) UNIQUE NOT NULL,
				scraped_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS ` + doubleQuote("idx_"+table+"_created_at") + ` ON ` + t + ` (created_at DESC)`,
		}
	},
	onConflict: `ON CONFLICT (url) DO UPDATE SET scraped_at = EXCLUDED.scraped_at`,
	list: func(dst *[]string) listColumn {
		return (*pq.StringArray)(dst)
	},
}

var sqliteDialect = dialect{
	name:  DriverSQLite,
	quote: doubleQuote,
	bind:  func(int) string { return "?" },
	schema: func(table string) []string {
		t := doubleQuote(table)
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + t + ` (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				ingredients TEXT NOT NULL DEFAULT '[]',
				instructions TEXT NOT NULL DEFAULT '[]',
				image TEXT,
				url TEXT NOT NULL UNIQUE,
				scraped_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ` + doubleQuote("idx_"+table+"_created_at") + ` ON ` + t + ` (created_at)`,
		}
	},
	onConflict: `ON CONFLICT(url) DO UPDATE SET scraped_at = excluded.scraped_at`,
	list:       newJSONList,
}

var mysqlDialect = dialect{
	name:  DriverMySQL,
	quote: backtickQuote,
	bind:  func(int) string { return "?" },
	schema: func(table string) []string {
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + backtickQuote(table) + ` (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				title TEXT NOT NULL,
				ingredients JSON,
				instructions JSON,
				image VARCHAR(500),
				url VARCHAR(500) NOT NULL,
				scraped_at DATETIME(6) NOT NULL,
				created_at DATETIME(6) NOT NULL,
				UNIQUE KEY ` + backtickQuote("uq_"+table+"_url") + ` (url),
				KEY ` + backtickQuote("idx_"+table+"_created_at") + ` (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	},
	onConflict: `ON DUPLICATE KEY UPDATE scraped_at = VALUES(scraped_at)`,
	list:       newJSONList,
}

const recipeColumns = "id, title, ingredients, instructions, image, url, scraped_at, created_at"

func (d dialect) upsertQuery(table string) string {
	binds := make([]string, 7)
	for i := range binds {
		binds[i] = d.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (title, ingredients, instructions, image, url, scraped_at, created_at) VALUES (%s) %s",
		d.quote(table), strings.Join(binds, ", "), d.onConflict,
	)
}

func (d dialect) selectByURLQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE url = %s", recipeColumns, d.quote(table), d.bind(1))
}

func (d dialect) listQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC, id DESC", recipeColumns, d.quote(table))
}

func (d dialect) deleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE url = %s", d.quote(table), d.bind(1))
}

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func backtickQuote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// jsonList stores a string list as a JSON array in a text or JSON column.
type jsonList struct {
	dst *[]string
}

func newJSONList(dst *[]string) listColumn {
	return jsonList{dst: dst}
}

// Value implements driver.Valuer.
func (l jsonList) Value() (driver.Value, error) {
	items := *l.dst
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l jsonList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l.dst = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a string list", src)
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l.dst = items
	return nil
}
