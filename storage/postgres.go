package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"storefront-sampler/internal/types"
)

// PostgresStore keeps sampled products in the product_samples table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and makes sure the schema exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Append inserts one sampled product
func (s *PostgresStore) Append(ctx context.Context, site string, product types.ExtractedProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_samples (site, name, price, url)
		VALUES ($1, $2, $3, $4)`,
		site,
		product.Name,
		product.Price,
		product.URL,
	)
	if err != nil {
		return fmt.Errorf("insert sample %q: %w", product.URL, err)
	}
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS product_samples (
			id BIGSERIAL PRIMARY KEY,
			site TEXT NOT NULL,
			name TEXT NOT NULL,
			price TEXT NOT NULL,
			url TEXT NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_product_samples_site ON product_samples(site);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
