package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/database"
)

const createSessionTable = `
CREATE TABLE IF NOT EXISTS nfse_session (
	profile    TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (profile, key)
)`

// PostgresBackend keeps the session in the nfse_session table, one row per
// profile and key.
type PostgresBackend struct {
	db      *database.Postgres
	profile string
}

func NewPostgresBackend(db *database.Postgres, profile string) *PostgresBackend {
	if profile == "" {
		profile = "default"
	}
	return &PostgresBackend{db: db, profile: profile}
}

// EnsureSchema creates the session table if it does not exist.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.Pool.Exec(ctx, createSessionTable); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	rows, err := b.db.Pool.Query(ctx,
		`SELECT key, value FROM nfse_session WHERE profile = $1 AND key = ANY($2)`,
		b.profile, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return values, nil
}

func (b *PostgresBackend) Update(ctx context.Context, set map[string]string, del ...string) error {
	err := pgx.BeginFunc(ctx, b.db.Pool, func(tx pgx.Tx) error {
		if len(del) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM nfse_session WHERE profile = $1 AND key = ANY($2)`,
				b.profile, del); err != nil {
				return err
			}
		}
		for key, value := range set {
			if _, err := tx.Exec(ctx,
				`INSERT INTO nfse_session (profile, key, value) VALUES ($1, $2, $3)
				 ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				b.profile, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.HealthCheck(ctx)
}

func (b *PostgresBackend) Close() error {
	b.db.Close()
	return nil
}
