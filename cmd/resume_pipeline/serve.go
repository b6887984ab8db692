package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-pipeline/internal/server"
	"github.com/jonathan/resume-pipeline/internal/server/ratelimit"
)

var (
	servePort   int
	serveWorker bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts uploads, edits, compile requests and searches.
Unless --worker=false is given, the workflow worker runs in the same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveWorker, "worker", true, "Also run the workflow worker in this process")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	if servePort > 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !serveWorker && !a.distributed() {
		return fmt.Errorf("--worker=false needs REDIS_ADDR so a separate worker can receive events")
	}

	srv, err := server.New(server.Config{
		Port:    cfg.Port,
		Service: a.service,
		Runs:    a.store,
		Limiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if serveWorker {
		g.Go(func() error { return a.engine.Start(gctx) })
	}
	return g.Wait()
}

// runUntilSignal runs fn with a context cancelled on SIGINT or SIGTERM.
func runUntilSignal(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}
