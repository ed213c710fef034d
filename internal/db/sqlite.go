package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS content_versions (
    id TEXT PRIMARY KEY,
    page_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    elements BLOB NOT NULL,
    content_hash TEXT NOT NULL,
    author_id TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    published BOOLEAN NOT NULL DEFAULT 0,
    UNIQUE (page_id, version)
);

CREATE INDEX IF NOT EXISTS content_versions_page_version
    ON content_versions (page_id, version DESC);

CREATE UNIQUE INDEX IF NOT EXISTS content_versions_one_published
    ON content_versions (page_id) WHERE published = 1;`

type SQLite struct {
	path string
	conn *sql.DB
}

// NewSQLite returns an unopened SQLite database at path. ":memory:" is
// supported and pins the pool to a single connection.
func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) dsn() string {
	if s.path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	// Write transactions take the lock up front so concurrent appends on
	// different pages wait on busy_timeout instead of failing mid-transaction.
	return "file:" + s.path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.dsn())
	if err != nil {
		return err
	}

	if s.path == ":memory:" {
		s.conn.SetMaxOpenConns(1)
	}

	res, err := s.conn.Exec(sqliteSchema)
	if err != nil {
		return err
	}

	dbLogger.Info().Str("path", s.path).Any("db_result", res).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Dialect() Dialect {
	return DialectSQLite
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
