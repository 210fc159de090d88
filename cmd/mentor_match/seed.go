package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import mentors into the catalog",
	Long:  "Validates a mentors JSON file against the catalog schema and inserts or replaces each mentor by ID.",
	RunE:  runSeed,
}

var (
	seedMentors string
)

func init() {
	seedCmd.Flags().StringVarP(&seedMentors, "mentors", "m", "", "Path to mentors JSON file (required)")

	if err := seedCmd.MarkFlagRequired("mentors"); err != nil {
		panic(fmt.Sprintf("failed to mark mentors flag as required: %v", err))
	}

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	mentors, err := loadMentors(seedMentors)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if err := store.UpsertMentors(ctx, mentors); err != nil {
		return fmt.Errorf("failed to import mentors: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mentor(s)\n", len(mentors)) //nolint:errcheck
	return nil
}
