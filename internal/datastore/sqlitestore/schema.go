// Package sqlitestore is the SQLite implementation of datastore.Store.
package sqlitestore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/tabula/internal/datastore"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_type         TEXT NOT NULL,
	row_count         INTEGER NOT NULL DEFAULT 0,
	column_count      INTEGER NOT NULL DEFAULT 0,
	file_size         INTEGER NOT NULL DEFAULT 0,
	checksum          TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	upload_date       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dataset_columns (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id          TEXT NOT NULL,
	column_name         TEXT NOT NULL,
	column_type         TEXT NOT NULL,
	is_filterable       BOOLEAN NOT NULL DEFAULT 0,
	unique_values_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS dataset_rows (
	dataset_id TEXT NOT NULL,
	row_index  INTEGER NOT NULL,
	row_data   TEXT NOT NULL,
	PRIMARY KEY (dataset_id, row_index)
);

CREATE TABLE IF NOT EXISTS ai_analyses (
	id            TEXT PRIMARY KEY,
	dataset_id    TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL DEFAULT '{}',
	custom_prompt TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_datasets_status_upload ON datasets(status, upload_date);
CREATE INDEX IF NOT EXISTS idx_datasets_checksum ON datasets(checksum);
CREATE INDEX IF NOT EXISTS idx_columns_dataset ON dataset_columns(dataset_id);
CREATE INDEX IF NOT EXISTS idx_analyses_dataset ON ai_analyses(dataset_id);
`

// DB implements datastore.Store on a SQLite file.
type DB struct {
	conn *sqlx.DB
}

var _ datastore.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
