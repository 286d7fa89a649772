package postgres

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garrettladley/payrelay/internal/migrations"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var migrationsFS embed.FS

func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := ApplyWithNames(ctx, pool)
	return err
}

// ApplyWithNames applies pending migrations and returns the names it applied.
func ApplyWithNames(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	ms, err := migrations.Load(migrationsFS, migrationsDir)
	if err != nil {
		return nil, err
	}
	return migrations.Run(ctx, executor{pool: pool}, ms)
}

type executor struct {
	pool *pgxpool.Pool
}

func (e executor) CreateHistoryTable(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations_history (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func (e executor) IsApplied(ctx context.Context, name string) (bool, error) {
	var count int
	err := e.pool.QueryRow(ctx, "SELECT COUNT(*) FROM migrations_history WHERE name = $1", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (e executor) Exec(ctx context.Context, stmt string) error {
	_, err := e.pool.Exec(ctx, stmt)
	return err
}

func (e executor) Record(ctx context.Context, name string) error {
	_, err := e.pool.Exec(ctx, "INSERT INTO migrations_history (name) VALUES ($1)", name)
	return err
}
