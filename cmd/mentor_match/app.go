package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonathan/mentor-match/internal/config"
	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/db"
	"github.com/jonathan/mentor-match/internal/extraction"
	"github.com/jonathan/mentor-match/internal/llm"
	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/schemas"
	"github.com/jonathan/mentor-match/internal/types"
)

type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// loadConfig loads --config (if set), defaults and environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore connects to PostgreSQL when a database URL is configured and falls back
// to the SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.Store, error) {
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Debug("using postgres store")
		return database, nil
	}

	store, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("using sqlite store", "path", cfg.SQLitePath)
	return store, nil
}

// newCompleter returns the Gemini completer, or the keyword reader when offline or
// no API key is configured. The returned func releases the client.
func newCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (extraction.Completer, func() error, error) {
	if cfg.Offline || cfg.APIKey == "" {
		if !cfg.Offline {
			logger.Warn("GEMINI_API_KEY not set, reading messages with the keyword matcher")
		}
		return extraction.KeywordCompleter{}, func() error { return nil }, nil
	}

	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(cfg.Tier(), cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewCompleter(client, cfg.Tier()), client.Close, nil
}

// newController wires the extractor, engine and store into a conversation controller.
func newController(cfg *config.Config, completer extraction.Completer, store db.Store, logger *slog.Logger, opts ...conversation.Option) (*conversation.Controller, error) {
	engine, err := matching.NewEngine(cfg.MatchingPolicy())
	if err != nil {
		return nil, fmt.Errorf("failed to create matching engine: %w", err)
	}

	extractor := extraction.NewExtractor(completer,
		extraction.WithTimeout(cfg.ExtractionTimeout.Std()),
		extraction.WithLogger(logger),
	)

	opts = append([]conversation.Option{conversation.WithLogger(logger)}, opts...)
	ctrl, err := conversation.New(cfg.ConversationConfig(), extractor, engine, store, store, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	return ctrl, nil
}

// loadMentors reads a mentor catalog file and validates it against the import schema.
func loadMentors(path string) ([]types.MentorProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mentors file %s: %w", path, err)
	}
	if err := schemas.ValidateMentorCatalog(data); err != nil {
		return nil, fmt.Errorf("invalid mentors file %s: %w", path, err)
	}

	var mentors []types.MentorProfile
	if err := json.Unmarshal(data, &mentors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mentors JSON: %w", err)
	}
	return mentors, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
