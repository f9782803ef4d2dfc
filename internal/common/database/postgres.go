package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"account-onboarding/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

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

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// accountsSchema holds the account table and its full-name lookup index.
// The duplicate check is a read followed by a later write with no lock, so
// two concurrent requests for the same name can both pass it.
const accountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                   UUID PRIMARY KEY,
	request_id           TEXT NOT NULL,
	firstname            TEXT NOT NULL,
	lastname             TEXT NOT NULL,
	birthdate            DATE NOT NULL,
	country_of_birth     CHAR(2) NOT NULL,
	country_of_residence CHAR(2) NOT NULL,
	street               TEXT NOT NULL,
	postal_code          TEXT NOT NULL,
	city                 TEXT NOT NULL,
	normalized_address   TEXT NOT NULL,
	address_score        DOUBLE PRECISION NOT NULL,
	email                TEXT NOT NULL,
	idcard_ref           TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS accounts_fullname_idx ON accounts (lastname, firstname);
CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);`

func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, accountsSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
