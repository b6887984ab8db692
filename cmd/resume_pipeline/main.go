// Package main provides the resume_pipeline binary: the HTTP API, the workflow
// worker and the sandboxed compiler service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-pipeline/internal/config"
	"github.com/jonathan/resume-pipeline/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "resume_pipeline",
	Short: "Asynchronous resume document pipeline",
	Long: "resume_pipeline ingests uploaded resumes, structures them with an AI backend, " +
		"compiles LaTeX markup in a sandbox and caches job-search results.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON config file (optional)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the effective configuration and a logger for its mode.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
