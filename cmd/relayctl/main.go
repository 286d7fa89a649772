package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/payrelay/internal/config"
	"github.com/garrettladley/payrelay/internal/version"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}

	if err := fang.Execute(context.Background(), rootCmd(cfg),
		fang.WithVersion(version.Get()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func rootCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Operate the payment relay ledger and test webhooks",
	}
	cmd.AddCommand(newMigrationCmd())
	cmd.AddCommand(migrateCmd(cfg))
	cmd.AddCommand(purgeCmd(cfg))
	cmd.AddCommand(signCmd(cfg))
	return cmd
}
