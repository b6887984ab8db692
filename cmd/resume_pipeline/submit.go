package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-pipeline/internal/workflow"
)

var (
	submitData string
	submitFile string
)

var submitCmd = &cobra.Command{
	Use:   "submit <event>",
	Short: "Submit a pipeline event",
	Long: `Publish an event such as compile/requested with a JSON payload.
With REDIS_ADDR the event is queued for the worker; otherwise it runs in this
process and the final run record is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitData, "data", "d", "", "JSON payload")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "Path to a JSON payload file")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(submitData, submitFile)
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.distributed() {
			id, err := a.engine.Submit(ctx, args[0], payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s event %s\n", args[0], id)
			return nil
		}

		ev, err := workflow.NewEvent(args[0], payload)
		if err != nil {
			return err
		}
		rec, err := a.engine.Execute(ctx, ev)
		if rec != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(rec); encErr != nil {
				return encErr
			}
		}
		return err
	})
}

// readPayload returns the event payload from --data or --file, defaulting to {}.
func readPayload(data, file string) (json.RawMessage, error) {
	if data != "" && file != "" {
		return nil, fmt.Errorf("use either --data or --file, not both")
	}
	raw := []byte(data)
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		raw = b
	}
	if strings.TrimSpace(string(raw)) == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
