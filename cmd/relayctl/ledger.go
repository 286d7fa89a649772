package main

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/garrettladley/payrelay/internal/config"
	"github.com/garrettladley/payrelay/internal/storage"
)

type ledgerFlags struct {
	databaseURL string
	sqlitePath  string
}

func (f *ledgerFlags) register(cmd *cobra.Command, cfg config.Config) {
	cmd.Flags().StringVar(&f.databaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection string")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite", cfg.SQLitePath, "path to a SQLite ledger (overrides --database-url)")
}

func (f *ledgerFlags) open(ctx context.Context) (storage.RelayLedger, error) {
	if f.sqlitePath != "" {
		return storage.OpenSQLiteLedger(ctx, f.sqlitePath)
	}
	if f.databaseURL == "" {
		return nil, errors.New("one of --database-url or --sqlite is required")
	}
	pool, err := pgxpool.New(ctx, f.databaseURL)
	if err != nil {
		return nil, err
	}
	return storage.NewPostgresLedger(pool), nil
}
