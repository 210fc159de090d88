// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/llm"
	"github.com/jonathan/mentor-match/internal/matching"
)

// Duration is a time.Duration written as a Go duration string ("8s", "30m") in JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds: %s", data)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or environment variables.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty"`  // SQLite file used when no database_url is set

	// Completion
	APIKey            string   `json:"api_key,omitempty"`            // Gemini API key
	ModelTier         string   `json:"model_tier,omitempty"`         // lite, standard or advanced
	Model             string   `json:"model,omitempty"`              // Overrides the Gemini model for ModelTier
	Offline           bool     `json:"offline,omitempty"`            // Read messages with the keyword matcher instead of Gemini
	ExtractionTimeout Duration `json:"extraction_timeout,omitempty"` // Bound on one completion call

	// Server
	Port           int     `json:"port,omitempty"`
	RateLimitRPS   float64 `json:"rate_limit_rps,omitempty"`   // Sustained requests per second per client
	RateLimitBurst int     `json:"rate_limit_burst,omitempty"` // Bucket size per client

	// Conversation
	SuggestionLimit       int                              `json:"suggestion_limit,omitempty"`
	SessionTTL            Duration                         `json:"session_ttl,omitempty"`
	ConflictRetries       *int                             `json:"conflict_retries,omitempty"`
	PrefilterByInstrument *bool                            `json:"prefilter_by_instrument,omitempty"`
	Completeness          *conversation.CompletenessPolicy `json:"completeness,omitempty"`

	// Scoring
	Matching *matching.Policy `json:"matching,omitempty"`

	Verbose bool `json:"verbose,omitempty"` // Debug logging
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	conv := conversation.DefaultConfig()
	policy := matching.DefaultPolicy()
	retries := conv.ConflictRetries
	prefilter := conv.PrefilterByInstrument
	completeness := conv.Completeness

	return Config{
		SQLitePath:            filepath.Join("data", "mentor_match.db"),
		ModelTier:             string(llm.TierLite),
		ExtractionTimeout:     Duration(8 * time.Second),
		Port:                  8080,
		RateLimitRPS:          5,
		RateLimitBurst:        10,
		SuggestionLimit:       conv.SuggestionLimit,
		SessionTTL:            Duration(conv.SessionTTL),
		ConflictRetries:       &retries,
		PrefilterByInstrument: &prefilter,
		Completeness:          &completeness,
		Matching:              &policy,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Seed nested policies so a file may override single knobs
	policy := matching.DefaultPolicy()
	completeness := conversation.DefaultCompletenessPolicy()
	cfg := Config{Matching: &policy, Completeness: &completeness}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load reads path (when non-empty), fills unset values from Defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from DATABASE_URL, SQLITE_PATH, GEMINI_API_KEY, GEMINI_MODEL
// and PORT.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.ExtractionTimeout < 0 {
		return fmt.Errorf("config error: 'extraction_timeout' must be non-negative")
	}
	if c.SuggestionLimit < 0 {
		return fmt.Errorf("config error: 'suggestion_limit' must be non-negative")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	if c.ModelTier != "" {
		if _, err := llm.ParseTier(c.ModelTier); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if c.Matching != nil {
		if err := c.Matching.Validate(); err != nil {
			return fmt.Errorf("config error: matching: %w", err)
		}
	}
	if c.Completeness != nil {
		if err := c.Completeness.Validate(); err != nil {
			return fmt.Errorf("config error: completeness: %w", err)
		}
	}
	if c.ConflictRetries != nil && *c.ConflictRetries < 0 {
		return fmt.Errorf("config error: 'conflict_retries' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}

	// Numeric fields: use default if zero
	if result.ExtractionTimeout == 0 {
		result.ExtractionTimeout = defaults.ExtractionTimeout
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = defaults.RateLimitRPS
	}
	if result.RateLimitBurst == 0 {
		result.RateLimitBurst = defaults.RateLimitBurst
	}
	if result.SuggestionLimit == 0 {
		result.SuggestionLimit = defaults.SuggestionLimit
	}
	if result.SessionTTL == 0 {
		result.SessionTTL = defaults.SessionTTL
	}

	// Pointer fields: nil means unset, so an explicit zero or false survives
	if result.ConflictRetries == nil {
		result.ConflictRetries = defaults.ConflictRetries
	}
	if result.PrefilterByInstrument == nil {
		result.PrefilterByInstrument = defaults.PrefilterByInstrument
	}
	if result.Completeness == nil {
		result.Completeness = defaults.Completeness
	}
	if result.Matching == nil {
		result.Matching = defaults.Matching
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ConversationConfig returns the controller settings.
func (c *Config) ConversationConfig() conversation.Config {
	out := conversation.DefaultConfig()
	if c.SuggestionLimit > 0 {
		out.SuggestionLimit = c.SuggestionLimit
	}
	if c.SessionTTL > 0 {
		out.SessionTTL = c.SessionTTL.Std()
	}
	if c.ConflictRetries != nil {
		out.ConflictRetries = *c.ConflictRetries
	}
	if c.PrefilterByInstrument != nil {
		out.PrefilterByInstrument = *c.PrefilterByInstrument
	}
	if c.Completeness != nil {
		out.Completeness = *c.Completeness
	}
	return out
}

// MatchingPolicy returns the scoring policy.
func (c *Config) MatchingPolicy() matching.Policy {
	if c.Matching != nil {
		return *c.Matching
	}
	return matching.DefaultPolicy()
}

// Tier returns the configured model tier, falling back to lite.
func (c *Config) Tier() llm.ModelTier {
	tier, err := llm.ParseTier(c.ModelTier)
	if err != nil {
		return llm.TierLite
	}
	return tier
}
