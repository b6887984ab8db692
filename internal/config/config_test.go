package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"port": 4000,
		"database_url": "postgres://localhost/resumes",
		"markup_mode": "template",
		"retry_backoff": "250ms",
		"sandbox": {"timeout": 15, "binary": "pdflatex"},
		"search": {"max_query_variants": 3}
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "postgres://localhost/resumes", cfg.DatabaseURL)
	assert.Equal(t, "template", cfg.MarkupMode)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff.Std())
	assert.Equal(t, 15*time.Second, cfg.Sandbox.Timeout.Std())
	assert.Equal(t, "pdflatex", cfg.Sandbox.Binary)
	assert.Equal(t, 3, cfg.Search.MaxQueryVariants)

	// Unset fields keep their defaults
	assert.Equal(t, int64(200_000), cfg.Sandbox.MaxBodyBytes)
	assert.Equal(t, time.Hour, cfg.CacheWindow.Std())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{"retry_backoff": "soon"}`), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 20*time.Second, cfg.Sandbox.Timeout.Std())
	assert.Equal(t, []string{"main.tex"}, cfg.Sandbox.Args)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad markup mode", func(c *Config) { c.MarkupMode = "handwritten" }, "MarkupMode"},
		{"negative concurrency", func(c *Config) { c.WorkerConcurrency = -1 }, "WorkerConcurrency"},
		{"bad sandbox url", func(c *Config) { c.Sandbox.URL = "not a url" }, "URL"},
		{"zero sandbox timeout", func(c *Config) { c.Sandbox.Timeout = 0 }, "sandbox.timeout"},
		{"zero cache window", func(c *Config) { c.CacheWindow = 0 }, "cache_window"},
		{"unknown model tier", func(c *Config) { c.Models = map[string]string{"huge": "m"} }, "Models"},
		{"s3 without bucket", func(c *Config) { c.Storage.S3Endpoint = "localhost:9000" }, "s3_bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("SANDBOX_ARGS", "-interaction=nonstopmode main.tex")
	t.Setenv("SEARCH_CALL_DELAY", "10ms")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("GEMINI_MODEL_ADVANCED", "gemini-2.5-pro")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, []string{"-interaction=nonstopmode", "main.tex"}, cfg.Sandbox.Args)
	assert.Equal(t, 10*time.Millisecond, cfg.Search.CallDelay.Std())
	assert.True(t, cfg.Storage.S3UseSSL)
	assert.Equal(t, 4, cfg.WorkerConcurrency, "invalid values keep the default")
	assert.Equal(t, map[string]string{"advanced": "gemini-2.5-pro"}, cfg.Models)
	assert.NoError(t, cfg.Validate())
}
