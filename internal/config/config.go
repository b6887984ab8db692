// Package config provides configuration loading and validation for the pipeline binaries.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Duration is a time.Duration that reads "20s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a Go duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full configuration shared by the serve, worker and sandbox commands.
// All fields are optional in the JSON file; missing values come from Default() and the environment.
type Config struct {
	Mode        string `json:"mode,omitempty" validate:"omitempty,oneof=dev development prod production"`
	Port        int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	DatabaseURL string `json:"database_url,omitempty"` // empty runs on the in-memory store
	RedisAddr   string `json:"redis_addr,omitempty"`   // enables the redis event queue and locks
	RedisQueue  string `json:"redis_queue,omitempty"`

	// Workflow engine
	WorkerConcurrency int      `json:"worker_concurrency,omitempty" validate:"gte=0"`
	RetryBackoff      Duration `json:"retry_backoff,omitempty"`

	// AI
	GeminiAPIKey string            `json:"gemini_api_key,omitempty"`
	MarkupMode   string            `json:"markup_mode,omitempty" validate:"omitempty,oneof=ai template"`
	AITimeout    Duration          `json:"ai_timeout,omitempty"`
	Models       map[string]string `json:"models,omitempty" validate:"dive,keys,oneof=lite standard advanced,endkeys"` // per-tier model overrides: lite, standard, advanced

	Sandbox SandboxConfig `json:"sandbox"`
	Search  SearchConfig  `json:"search"`
	Storage StorageConfig `json:"storage"`

	CacheWindow Duration `json:"cache_window,omitempty"`
}

// SandboxConfig covers both the compiler service and the clients that call it.
type SandboxConfig struct {
	Port            int      `json:"port,omitempty" validate:"gte=0,lte=65535"`
	Binary          string   `json:"binary,omitempty"`
	Args            []string `json:"args,omitempty"`
	TempRoot        string   `json:"temp_root,omitempty"`
	Timeout         Duration `json:"timeout,omitempty"`
	MaxBodyBytes    int64    `json:"max_body_bytes,omitempty" validate:"gte=0"`
	MaxConcurrent   int      `json:"max_concurrent,omitempty" validate:"gte=0"`
	URL             string   `json:"url,omitempty" validate:"omitempty,url"`
	FallbackURL     string   `json:"fallback_url,omitempty" validate:"omitempty,url"`
	PrimaryTimeout  Duration `json:"primary_timeout,omitempty"`
	FallbackTimeout Duration `json:"fallback_timeout,omitempty"`
}

// SearchConfig holds credentials and pacing for the external job-search providers.
type SearchConfig struct {
	AdzunaAppID      string   `json:"adzuna_app_id,omitempty"`
	AdzunaAppKey     string   `json:"adzuna_app_key,omitempty"`
	AdzunaCountry    string   `json:"adzuna_country,omitempty"`
	RapidAPIKey      string   `json:"rapidapi_key,omitempty"`
	MaxQueryVariants int      `json:"max_query_variants,omitempty" validate:"gte=0"`
	CallDelay        Duration `json:"call_delay,omitempty"`
	Timeout          Duration `json:"timeout,omitempty"`
}

// StorageConfig selects where compiled PDFs are stored.
type StorageConfig struct {
	Dir         string `json:"dir,omitempty"`
	S3Endpoint  string `json:"s3_endpoint,omitempty"`
	S3AccessKey string `json:"s3_access_key,omitempty"`
	S3SecretKey string `json:"s3_secret_key,omitempty"`
	S3Bucket    string `json:"s3_bucket,omitempty"`
	S3UseSSL    bool   `json:"s3_use_ssl,omitempty"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Mode:              "development",
		Port:              3000,
		RedisQueue:        "pipeline:events",
		WorkerConcurrency: 4,
		RetryBackoff:      Duration(2 * time.Second),
		MarkupMode:        "ai",
		AITimeout:         Duration(60 * time.Second),
		Sandbox: SandboxConfig{
			Port:            8080,
			Binary:          "tectonic",
			Args:            []string{"main.tex"},
			Timeout:         Duration(20 * time.Second),
			MaxBodyBytes:    200_000,
			MaxConcurrent:   4,
			URL:             "http://127.0.0.1:8080/compile",
			FallbackURL:     "https://latex.online/compile",
			PrimaryTimeout:  Duration(60 * time.Second),
			FallbackTimeout: Duration(20 * time.Second),
		},
		Search: SearchConfig{
			AdzunaCountry:    "us",
			MaxQueryVariants: 5,
			CallDelay:        Duration(1500 * time.Millisecond),
			Timeout:          Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Dir: "compiled",
		},
		CacheWindow: Duration(time.Hour),
	}
}

// LoadConfig loads configuration from a JSON file on top of Default().
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

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the optional JSON file, then the environment.
func Load(path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := Default()
		cfg = &def
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables when they are set.
func (c *Config) ApplyEnv() {
	c.Mode = getEnvString("APP_MODE", c.Mode)
	c.Port = getEnvInt("PORT", c.Port)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = getEnvString("REDIS_ADDR", c.RedisAddr)
	c.RedisQueue = getEnvString("REDIS_QUEUE", c.RedisQueue)
	c.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", c.WorkerConcurrency)
	c.RetryBackoff = Duration(getEnvDuration("RETRY_BACKOFF", c.RetryBackoff.Std()))
	c.GeminiAPIKey = getEnvString("GEMINI_API_KEY", getEnvString("GOOGLE_API_KEY", c.GeminiAPIKey))
	c.MarkupMode = getEnvString("MARKUP_MODE", c.MarkupMode)
	c.AITimeout = Duration(getEnvDuration("AI_TIMEOUT", c.AITimeout.Std()))
	for _, tier := range []string{"lite", "standard", "advanced"} {
		if m := os.Getenv("GEMINI_MODEL_" + strings.ToUpper(tier)); m != "" {
			if c.Models == nil {
				c.Models = make(map[string]string)
			}
			c.Models[tier] = m
		}
	}

	c.Sandbox.Port = getEnvInt("SANDBOX_PORT", c.Sandbox.Port)
	c.Sandbox.Binary = getEnvString("SANDBOX_BINARY", c.Sandbox.Binary)
	if args := getEnvString("SANDBOX_ARGS", ""); args != "" {
		c.Sandbox.Args = strings.Fields(args)
	}
	c.Sandbox.TempRoot = getEnvString("SANDBOX_TEMP_ROOT", c.Sandbox.TempRoot)
	c.Sandbox.MaxConcurrent = getEnvInt("SANDBOX_MAX_CONCURRENT", c.Sandbox.MaxConcurrent)
	c.Sandbox.Timeout = Duration(getEnvDuration("SANDBOX_TIMEOUT", c.Sandbox.Timeout.Std()))
	c.Sandbox.URL = getEnvString("SANDBOX_URL", c.Sandbox.URL)
	c.Sandbox.FallbackURL = getEnvString("SANDBOX_FALLBACK_URL", c.Sandbox.FallbackURL)

	c.Search.AdzunaAppID = getEnvString("ADZUNA_APP_ID", c.Search.AdzunaAppID)
	c.Search.AdzunaAppKey = getEnvString("ADZUNA_APP_KEY", c.Search.AdzunaAppKey)
	c.Search.AdzunaCountry = getEnvString("ADZUNA_COUNTRY", c.Search.AdzunaCountry)
	c.Search.RapidAPIKey = getEnvString("RAPIDAPI_KEY", c.Search.RapidAPIKey)
	c.Search.CallDelay = Duration(getEnvDuration("SEARCH_CALL_DELAY", c.Search.CallDelay.Std()))

	c.Storage.Dir = getEnvString("STORAGE_DIR", c.Storage.Dir)
	c.Storage.S3Endpoint = getEnvString("S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3AccessKey = getEnvString("S3_ACCESS_KEY", c.Storage.S3AccessKey)
	c.Storage.S3SecretKey = getEnvString("S3_SECRET_KEY", c.Storage.S3SecretKey)
	c.Storage.S3Bucket = getEnvString("S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3UseSSL = getEnvBool("S3_USE_SSL", c.Storage.S3UseSSL)
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Sandbox.Timeout.Std() <= 0 {
		return fmt.Errorf("config error: 'sandbox.timeout' must be positive")
	}
	if c.CacheWindow.Std() <= 0 {
		return fmt.Errorf("config error: 'cache_window' must be positive")
	}
	if c.Storage.S3Endpoint != "" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("config error: 's3_bucket' is required when 's3_endpoint' is set")
	}
	return nil
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
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
