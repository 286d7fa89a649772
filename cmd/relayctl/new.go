package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// each dialect keeps its own copy of every migration under the same number
var migrationDirs = []string{
	filepath.Join("internal", "migrations", "sql"),
	filepath.Join("internal", "migrations", "postgres", "sql"),
}

func newMigrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new migration file for every SQL dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var nextNum int
			for _, dir := range migrationDirs {
				entries, err := os.ReadDir(dir)
				if err != nil {
					return fmt.Errorf("failed to read migrations directory: %w", err)
				}
				nextNum = max(nextNum, getNextMigrationNum(entries))
			}

			for _, dir := range migrationDirs {
				filename := filepath.Join(dir, fmt.Sprintf("%04d_%s.sql", nextNum, name))

				if _, err := os.Stat(filename); err == nil {
					return fmt.Errorf("migration file already exists: %s", filename)
				}

				content := fmt.Sprintf("-- Migration: %s\n\n", name)
				if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
					return fmt.Errorf("failed to create migration file: %w", err)
				}

				cmd.Printf("Created migration: %s\n", filename)
			}
			return nil
		},
	}
}

func getNextMigrationNum(entries []os.DirEntry) int {
	var nextNum int
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(prefix, "%d", &num); err != nil {
			continue
		}
		nextNum = max(nextNum, num)
	}
	return nextNum + 1
}
