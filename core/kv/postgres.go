package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	selectValueSQL = `SELECT value FROM kv_entries WHERE key = $1`
	upsertValueSQL = `INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// Postgres stores entries in the kv_entries table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.GetContext(ctx, &value, selectValueSQL, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return value, true, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, key, value string) error {
	if _, err := p.db.ExecContext(ctx, upsertValueSQL, key, value); err != nil {
		return fmt.Errorf("kv: put %q: %w", key, err)
	}
	return nil
}
