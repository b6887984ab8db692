package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit for one route. Path uses ServeMux-style patterns:
// "{id}" matches a single segment and a trailing "{name...}" matches the rest.
// A Limit of zero leaves the route unlimited.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an untouched bucket is kept. Defaults to an hour.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-route limits for the API and the compiler service.
// Routes not listed here share the default limit.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/health", Method: "GET"},

		// Compiler and AI-backed work
		{Path: "/compile", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/documents/{id}/compile", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/documents", Method: "POST", Limit: 20, Window: time.Hour, Burst: 5},
		{Path: "/jobs", Method: "POST", Limit: 20, Window: time.Hour, Burst: 5},
		{Path: "/events/{name...}", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},

		// External search providers and edits
		{Path: "/search", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/documents/{id}/markup", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},

		// Long-lived progress streams
		{Path: "/runs/{id}/stream", Method: "GET", Limit: 30, Window: time.Minute, Burst: 10},
	}
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
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
