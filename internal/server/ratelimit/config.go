package ratelimit

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig builds the limiter configuration from the sustained per-client rate and
// burst. RATE_LIMIT_ENABLED, RATE_LIMIT_WHITELIST and RATE_LIMIT_BLACKLIST are read
// from the environment.
func LoadConfig(rps float64, burst int) *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) || rps <= 0 {
		return &Config{Enabled: false}
	}

	perMinute := int(math.Ceil(rps * 60))
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    perMinute,
		DefaultWindow:   time.Minute,
		DefaultBurst:    burst,
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleExpiry:      time.Hour,
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(perMinute, burst),
	}
}

// DefaultEndpointConfigs returns the per-route limits derived from the default rate.
// Routes that process a chat turn call the completion model, so they get a quarter of it.
func DefaultEndpointConfigs(perMinute, burst int) []EndpointConfig {
	turn := max(perMinute/4, 1)
	turnBurst := max(burst/2, 1)
	return []EndpointConfig{
		{Path: "/sessions", Method: "POST", Limit: turn, Window: time.Minute, Burst: turnBurst},
		{Path: "/sessions/stream", Method: "POST", Limit: turn, Window: time.Minute, Burst: turnBurst},
		{Path: "/sessions/", Method: "POST", Limit: max(perMinute/2, 1), Window: time.Minute, Burst: burst},
	}
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
