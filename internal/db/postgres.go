package db

import (
	"database/sql"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS content_versions (
    id TEXT PRIMARY KEY,
    page_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    elements BYTEA NOT NULL,
    content_hash TEXT NOT NULL,
    author_id TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (page_id, version)
);

CREATE INDEX IF NOT EXISTS content_versions_page_version
    ON content_versions (page_id, version DESC);

CREATE UNIQUE INDEX IF NOT EXISTS content_versions_one_published
    ON content_versions (page_id) WHERE published;`

type Postgres struct {
	dsn  string
	conn *sql.DB
}

func NewPostgres(dsn string) *Postgres {
	return &Postgres{dsn: dsn}
}

func (p *Postgres) InitDB() error {
	var err error
	p.conn, err = sql.Open("postgres", p.dsn)
	if err != nil {
		return err
	}

	if err := p.conn.Ping(); err != nil {
		return err
	}

	if _, err := p.conn.Exec(postgresSchema); err != nil {
		return err
	}

	dbLogger.Info().Msg("Database initialized")
	return nil
}

func (p *Postgres) Get() *sql.DB {
	return p.conn
}

func (p *Postgres) Dialect() Dialect {
	return DialectPostgres
}

func (p *Postgres) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
