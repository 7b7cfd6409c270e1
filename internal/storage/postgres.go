package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gingerskull/joycore-link/internal/config"
)

type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(cfg config.DatabaseConfig) (*PostgresClient, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}

	// Connection testen
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// NewPostgresClientFromDB wraps an existing handle. Tests use this with
// a mocked driver.
func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}

func (p *PostgresClient) DB() *sql.DB {
	return p.db
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS input_transitions (
	id BIGSERIAL PRIMARY KEY,
	domain TEXT NOT NULL,
	signature TEXT NOT NULL,
	payload JSONB NOT NULL,
	occurred_ms BIGINT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (domain, signature, occurred_ms)
);
CREATE INDEX IF NOT EXISTS idx_input_transitions_domain_time
	ON input_transitions (domain, occurred_ms DESC);
`

// EnsureSchema creates the transitions table if it does not exist yet.
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
