package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/observability"
	"github.com/jonathan/mentor-match/internal/types"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank mentors against a needs file",
	Long:  "Deterministically scores every mentor in a mentors JSON file against an ExtractedUserNeeds JSON file and prints the ranked suggestions.",
	RunE:  runMatch,
}

var (
	matchNeeds   string
	matchMentors string
	matchLimit   int
	matchOutput  string
	matchText    bool
)

func init() {
	matchCmd.Flags().StringVarP(&matchNeeds, "needs", "n", "", "Path to ExtractedUserNeeds JSON file (required)")
	matchCmd.Flags().StringVarP(&matchMentors, "mentors", "m", "", "Path to mentors JSON file (required)")
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "l", 0, "Maximum suggestions (defaults to the configured suggestion limit)")
	matchCmd.Flags().StringVarP(&matchOutput, "out", "o", "", "Write suggestions JSON here instead of stdout")
	matchCmd.Flags().BoolVar(&matchText, "text", false, "Print a readable summary instead of JSON")

	if err := matchCmd.MarkFlagRequired("needs"); err != nil {
		panic(fmt.Sprintf("failed to mark needs flag as required: %v", err))
	}
	if err := matchCmd.MarkFlagRequired("mentors"); err != nil {
		panic(fmt.Sprintf("failed to mark mentors flag as required: %v", err))
	}

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	needsContent, err := os.ReadFile(matchNeeds)
	if err != nil {
		return fmt.Errorf("failed to read needs file %s: %w", matchNeeds, err)
	}
	var needs types.ExtractedUserNeeds
	if err := json.Unmarshal(needsContent, &needs); err != nil {
		return fmt.Errorf("failed to unmarshal needs JSON: %w", err)
	}

	mentors, err := loadMentors(matchMentors)
	if err != nil {
		return err
	}

	engine, err := matching.NewEngine(cfg.MatchingPolicy())
	if err != nil {
		return fmt.Errorf("failed to create matching engine: %w", err)
	}

	limit := matchLimit
	if limit <= 0 {
		limit = cfg.ConversationConfig().SuggestionLimit
	}

	suggestions, err := engine.Match(needs, mentors, limit)
	if err != nil {
		return fmt.Errorf("failed to match mentors: %w", err)
	}

	if matchText {
		observability.NewPrinter(cmd.OutOrStdout()).PrintSuggestions(suggestions)
		return nil
	}

	var out io.Writer = cmd.OutOrStdout()
	if matchOutput != "" {
		f, err := os.Create(matchOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", matchOutput, err)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}
	return writeJSON(out, suggestions)
}
