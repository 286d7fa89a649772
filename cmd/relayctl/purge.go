package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/payrelay/internal/config"
)

func purgeCmd(cfg config.Config) *cobra.Command {
	var (
		flags     ledgerFlags
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete relay records older than a retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			n, err := ledger.Purge(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			cmd.Printf("Purged %d relay records\n", n)
			return nil
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().DurationVar(&olderThan, "older-than", 72*time.Hour, "purge records relayed before now minus this duration")
	return cmd
}
