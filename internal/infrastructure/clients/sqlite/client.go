package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// Client wraps the embedded SQLite store.
type Client struct {
	db *sql.DB
}

// Open opens the embedded database with WAL mode enabled and initializes the
// schema. A failure here means the embedded backend is unavailable and the
// caller should fall back to the relational store.
func Open(ctx context.Context, path string) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Client{db: db}, nil
}

// DB returns the underlying database handle
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS enriched_items (
	id TEXT PRIMARY KEY,
	part_number TEXT NOT NULL,
	manufacturer TEXT,
	raw TEXT,
	enriched TEXT,
	ai_version TEXT,
	hash TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enriched_items_hash ON enriched_items (hash, updated_at DESC);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT,
	status TEXT NOT NULL,
	ai_version TEXT,
	duration_ms INTEGER,
	error TEXT,
	created_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}
