// Package index provides a SQLite-backed record index: a metadata cache
// keyed by vault file path, the reference graph extracted from record
// bodies, and full-text search (FTS5 when compiled in, LIKE fallback
// otherwise). File discovery stays authoritative in the store; the index
// accelerates search, backlinks, and the graph view, and is rebuilt from
// a directory scan at startup.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	path      TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	record_id TEXT NOT NULL DEFAULT '',
	title     TEXT NOT NULL DEFAULT '',
	category  TEXT NOT NULL DEFAULT '',
	created   TEXT NOT NULL DEFAULT '',
	updated   TEXT NOT NULL DEFAULT '',
	archived  TEXT NOT NULL DEFAULT '',
	checksum  TEXT NOT NULL DEFAULT '',
	body      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_id ON records(kind, record_id);

CREATE TABLE IF NOT EXISTS refs (
	source_path TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	UNIQUE(source_path, target_id)
);

CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source_path);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
