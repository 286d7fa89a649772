package main

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/garrettladley/payrelay/internal/config"
	"github.com/garrettladley/payrelay/internal/migrations"
	"github.com/garrettladley/payrelay/internal/migrations/postgres"
)

func migrateCmd(cfg config.Config) *cobra.Command {
	var flags ledgerFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending ledger migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				applied []string
				err     error
			)
			switch {
			case flags.sqlitePath != "":
				db, openErr := sql.Open("sqlite3", flags.sqlitePath)
				if openErr != nil {
					return fmt.Errorf("failed to open sqlite: %w", openErr)
				}
				defer func() { _ = db.Close() }()
				applied, err = migrations.ApplySQLite(ctx, db)
			case flags.databaseURL != "":
				pool, openErr := pgxpool.New(ctx, flags.databaseURL)
				if openErr != nil {
					return fmt.Errorf("failed to connect: %w", openErr)
				}
				defer pool.Close()
				applied, err = postgres.ApplyWithNames(ctx, pool)
			default:
				return fmt.Errorf("one of --database-url or --sqlite is required")
			}
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				cmd.Println("No pending migrations")
				return nil
			}
			for _, name := range applied {
				cmd.Printf("Applied %s\n", name)
			}
			return nil
		},
	}
	flags.register(cmd, cfg)
	return cmd
}
