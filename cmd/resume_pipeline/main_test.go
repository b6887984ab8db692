package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-pipeline/internal/config"
	"github.com/jonathan/resume-pipeline/internal/llm"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/sandbox"
	"github.com/jonathan/resume-pipeline/internal/storage"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "sandbox", "submit", "migrate", "extract"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestMigratePrint(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--print"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		migratePrint = false
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, out.String(), "compiled_artifacts")
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane   Doe\n\n\n\nGo Engineer\n"), 0o644))

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(args)
		t.Cleanup(func() {
			rootCmd.SetArgs(nil)
			rootCmd.SetOut(nil)
			extractMeta = false
		})
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	assert.Equal(t, "Jane Doe\n\nGo Engineer\n", run("extract", path))
	meta := run("extract", path, "--meta")
	assert.Contains(t, meta, `"format": "text"`)
	assert.Contains(t, meta, `"lines": 3`)
}

func TestReadPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"documentId":"abc"}`), 0o600))

	tests := []struct {
		name    string
		data    string
		file    string
		want    string
		wantErr string
	}{
		{name: "empty defaults to object", want: "{}"},
		{name: "inline", data: `{"query":"go"}`, want: `{"query":"go"}`},
		{name: "file", file: path, want: `{"documentId":"abc"}`},
		{name: "both", data: "{}", file: path, wantErr: "not both"},
		{name: "invalid", data: "{", wantErr: "not valid JSON"},
		{name: "missing file", file: filepath.Join(dir, "missing.json"), wantErr: "failed to read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayload(tt.data, tt.file)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestNewBlobStore(t *testing.T) {
	ctx := context.Background()

	blobs, err := newBlobStore(ctx, config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, blobs)

	blobs, err = newBlobStore(ctx, config.StorageConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	_, ok := blobs.(*storage.LocalStore)
	assert.True(t, ok)
}

func TestNewCompiler(t *testing.T) {
	cfg := config.Default().Sandbox

	chain, ok := newCompiler(cfg, logger.Nop()).(*sandbox.Chain)
	require.True(t, ok)
	assert.NotNil(t, chain.Primary)
	assert.NotNil(t, chain.Fallback)

	cfg.FallbackURL = ""
	chain, ok = newCompiler(cfg, logger.Nop()).(*sandbox.Chain)
	require.True(t, ok)
	assert.Nil(t, chain.Fallback)
}

func TestLLMConfig_Overrides(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, llm.DefaultConfig().Models, llmConfig(&cfg).Models)

	cfg.Models = map[string]string{"advanced": "gemini-2.5-pro"}
	got := llmConfig(&cfg)
	assert.Equal(t, "gemini-2.5-pro", got.Model(llm.TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", got.Model(llm.TierLite))
}

func TestNewAggregator_NoCredentials(t *testing.T) {
	agg := newAggregator(config.Default().Search, logger.Nop())
	listings, err := agg.Fetch(context.Background(), []string{"go"}, "")
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestBuildApp_RequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.GeminiAPIKey = ""
	cfg.Storage.Dir = t.TempDir()

	_, err := buildApp(context.Background(), &cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "GEMINI_API_KEY"))
}
