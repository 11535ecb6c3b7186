package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/partdesk/catalog-enrichment/pkg/config"
	"github.com/partdesk/catalog-enrichment/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection with retry
	retryConfig := retry.DefaultConfig()
	err = retry.DoWithLog(
		context.Background(),
		retryConfig,
		"PostgreSQL",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("PostgreSQL connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	return &Client{db: db}, nil
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// EnsureSchema lazily creates the required tables on first use. The check
// runs at most once per process.
func (c *Client) EnsureSchema(ctx context.Context) error {
	c.schemaOnce.Do(func() {
		schema := `
CREATE TABLE IF NOT EXISTS enriched_items (
	id TEXT PRIMARY KEY,
	part_number TEXT NOT NULL,
	manufacturer TEXT,
	raw JSONB,
	enriched JSONB,
	ai_version TEXT,
	hash TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enriched_items_hash ON enriched_items (hash, updated_at DESC);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id SERIAL PRIMARY KEY,
	item_id TEXT,
	status TEXT NOT NULL,
	ai_version TEXT,
	duration_ms BIGINT,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
`
		_, c.schemaErr = c.db.ExecContext(ctx, schema)
	})
	return c.schemaErr
}
