package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// NewPool opens a pgx-backed connection pool and verifies it is reachable.
// 🛡️ SLA: the pool is wrapped in sqlx so the shared repositories can rebind queries.
func NewPool(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	connConfig, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDB(*connConfig), "pgx")
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS product_groups (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id           BIGSERIAL PRIMARY KEY,
	group_id     BIGINT NOT NULL REFERENCES product_groups(id) ON DELETE CASCADE,
	name         TEXT NOT NULL UNIQUE,
	description  TEXT NOT NULL DEFAULT '',
	manufacturer TEXT NOT NULL DEFAULT '',
	quantity     BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	price        DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (price >= 0)
);

CREATE INDEX IF NOT EXISTS products_group_id_idx ON products (group_id);
`

// Migrate creates the inventory tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	return nil
}
