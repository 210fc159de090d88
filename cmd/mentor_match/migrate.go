package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Applies the embedded SQL migrations to PostgreSQL (DATABASE_URL) or the SQLite file (SQLITE_PATH).",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	m, ok := store.(migrator)
	if !ok {
		return fmt.Errorf("store does not support migrations")
	}
	applied, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied) //nolint:errcheck
	return nil
}
