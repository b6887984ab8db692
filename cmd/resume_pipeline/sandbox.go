package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-pipeline/internal/sandbox"
)

var sandboxPort int

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Start the sandboxed LaTeX compiler service",
	Long: `Start the compiler service. POST /compile takes raw LaTeX, rejects unsafe commands
and returns the PDF produced by the configured binary.`,
	RunE: runSandbox,
}

func init() {
	sandboxCmd.Flags().IntVar(&sandboxPort, "port", 0, "Port to listen on (default from config)")
	rootCmd.AddCommand(sandboxCmd)
}

func runSandbox(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	if sandboxPort > 0 {
		cfg.Sandbox.Port = sandboxPort
	}

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		return sandbox.NewServer(cfg.Sandbox, log).Run(ctx)
	})
}
