// Package main provides the mentor_match CLI: the HTTP API server, a terminal chat and
// catalog tooling.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mentor_match",
	Short: "Conversational music mentor matching",
	Long: `mentor_match talks with a learner until it knows enough about what they want to learn,
then ranks mentors from the catalog and helps them pick one.

Configuration can be loaded from a JSON file using --config. Environment variables
(DATABASE_URL, SQLITE_PATH, GEMINI_API_KEY, PORT) override file values.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
