/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cast"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "prefs"

// Dialect selects placeholder syntax and driver.
type Dialect string

const (
	// SQLite uses github.com/mattn/go-sqlite3.
	SQLite Dialect = "sqlite3"
	// Postgres uses github.com/lib/pq.
	Postgres Dialect = "postgres"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("sqlstore: invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Backend stores preferences as text rows of a two-column table.
type Backend struct {
	db    *sql.DB
	owned bool

	loadSQL   string
	saveSQL   string
	deleteSQL string
}

// OpenSQLite opens or creates the SQLite database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func OpenSQLite(path, table string) (*Backend, error) {
	db, err := sql.Open(string(SQLite), path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: connect %s: %w", path, err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	b, err := New(context.Background(), db, SQLite, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}

// OpenPostgres connects to the PostgreSQL database named by dsn.
func OpenPostgres(dsn, table string) (*Backend, error) {
	db, err := sql.Open(string(Postgres), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: connect postgres: %w", err)
	}
	b, err := New(context.Background(), db, Postgres, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}

// New creates table in db if needed and returns a Backend over it.
// The db is not closed by Close.
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*Backend, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	pref_key   TEXT PRIMARY KEY,
	pref_value TEXT NOT NULL
)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlstore: create table %s: %w", table, err)
	}

	p1, p2 := dialect.placeholder(1), dialect.placeholder(2)
	return &Backend{
		db:        db,
		loadSQL:   fmt.Sprintf("SELECT pref_value FROM %s WHERE pref_key = %s", table, p1),
		saveSQL:   fmt.Sprintf("INSERT INTO %s (pref_key, pref_value) VALUES (%s, %s) ON CONFLICT (pref_key) DO UPDATE SET pref_value = excluded.pref_value", table, p1, p2),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE pref_key = %s", table, p1),
	}, nil
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Load returns the text stored under key.
func (b *Backend) Load(ctx context.Context, key string) (any, bool, error) {
	var v string
	err := b.db.QueryRowContext(ctx, b.loadSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: load %q: %w", key, err)
	}
	return v, true, nil
}

// Save upserts the text form of value under key.
func (b *Backend) Save(ctx context.Context, key string, value any) error {
	text, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Errorf("sqlstore: %q: %w", key, err)
	}
	if _, err := b.db.ExecContext(ctx, b.saveSQL, key, text); err != nil {
		return fmt.Errorf("sqlstore: save %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, b.deleteSQL, key); err != nil {
		return fmt.Errorf("sqlstore: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the database if the Backend opened it.
func (b *Backend) Close() error {
	if !b.owned || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("sqlstore: %q: %w", pragma, err)
		}
	}
	return nil
}
