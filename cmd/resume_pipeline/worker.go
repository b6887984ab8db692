package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the workflow worker",
	Long: `Consume pipeline events from redis and execute the ingestion, enhancement,
compilation and search functions. Requires REDIS_ADDR.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for a standalone worker")
	}

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		log.Info("worker started", "events", a.engine.Events())
		return a.engine.Start(ctx)
	})
}
