package db

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// New opens the database/sql handle used by the listing repository.
func New(url string) (*sql.DB, error) {
	return sql.Open("postgres", url)
}

// NewPool opens the pgx pool used by the score run repository.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, url)
}

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id BIGSERIAL PRIMARY KEY,
	title VARCHAR(500) NOT NULL,
	url VARCHAR(1000) NOT NULL UNIQUE,
	price_dkk BIGINT,
	year INT,
	kilometers BIGINT,
	condition_str VARCHAR(100),
	condition_score DOUBLE PRECISION,
	score INT,
	brand VARCHAR(50),
	model VARCHAR(50),
	fuel_type VARCHAR(50),
	transmission VARCHAR(50),
	body_type VARCHAR(50),
	location VARCHAR(100),
	dealer_name VARCHAR(200),
	price_score DOUBLE PRECISION,
	year_score DOUBLE PRECISION,
	kilometers_score DOUBLE PRECISION,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_score ON listings (score DESC);
CREATE INDEX IF NOT EXISTS idx_listings_fetched_at ON listings (fetched_at);

CREATE TABLE IF NOT EXISTS score_runs (
	id UUID PRIMARY KEY,
	triggered_by VARCHAR(50) NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	listings_total INT NOT NULL,
	listings_scored INT NOT NULL,
	mean_score DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_runs_started_at ON score_runs (started_at DESC);
`

// Migrate creates the tables on first start. Every statement is
// idempotent, so running it on each boot is safe.
func Migrate(sqlDB *sql.DB) error {
	_, err := sqlDB.Exec(schema)
	return err
}
