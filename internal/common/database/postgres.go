// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"give4need/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// documentTables are the collections stored as one JSONB document per row.
var documentTables = []string{"items", "users"}

// EnsureSchema creates the document tables and their lookup indexes.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, table := range documentTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, table)
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_items_user_id ON items ((doc->>'userId'))`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items ((doc->>'category'))`,
		`CREATE INDEX IF NOT EXISTS idx_items_available ON items ((doc->>'available'))`,
		`CREATE INDEX IF NOT EXISTS idx_items_datetime ON items ((doc->>'datetime'))`,
	}
	for _, stmt := range indexes {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Query executes a query that returns rows
func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// Exec executes a query that doesn't return rows
func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}
