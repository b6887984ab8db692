package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// -----------------------------------------------------------------------------
// Workflow Run and Step Methods
// -----------------------------------------------------------------------------

// CreateRun inserts a workflow run record.
func (db *DB) CreateRun(ctx context.Context, run *workflow.RunRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO workflow_runs (id, function_id, event_id, event_name, payload, status, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.FunctionID, run.EventID, run.EventName, nullJSON(run.Payload),
		string(run.Status), run.Attempts, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun records the status, attempt count, output and error of a run.
// completed_at is set once the run reaches a terminal status.
func (db *DB) UpdateRun(ctx context.Context, runID uuid.UUID, update workflow.RunUpdate) error {
	terminal := update.Status == workflow.RunCompleted || update.Status == workflow.RunFailed

	tag, err := db.pool.Exec(ctx,
		`UPDATE workflow_runs
		 SET status = $2, attempts = $3, output = COALESCE($4, output), error = $5,
		     completed_at = CASE WHEN $6 THEN NOW() ELSE completed_at END
		 WHERE id = $1`,
		runID, string(update.Status), update.Attempts, nullJSON(update.Output), update.Error, terminal,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID. Returns workflow.ErrRunNotFound when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*workflow.RunRecord, error) {
	var run workflow.RunRecord
	var status string
	var payload, output []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, function_id, event_id, event_name, payload, status, attempts, output, error,
		        created_at, completed_at
		 FROM workflow_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.FunctionID, &run.EventID, &run.EventName, &payload, &status,
		&run.Attempts, &output, &run.Error, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, workflow.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Status = workflow.RunStatus(status)
	run.Payload = payload
	run.Output = output
	return &run, nil
}

// LoadStep returns the memoized output of a step and whether it exists.
func (db *DB) LoadStep(ctx context.Context, runID uuid.UUID, step string) ([]byte, bool, error) {
	var output []byte
	err := db.pool.QueryRow(ctx,
		`SELECT output FROM workflow_steps WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&output)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load step: %w", err)
	}
	return output, true, nil
}

// SaveStep memoizes a step output. A second save for the same step overwrites the first.
func (db *DB) SaveStep(ctx context.Context, runID uuid.UUID, step string, output []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO workflow_steps (run_id, step, output)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, step) DO UPDATE SET output = EXCLUDED.output, created_at = NOW()`,
		runID, step, output,
	)
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// nullJSON maps an empty payload to SQL NULL so JSONB columns never receive "".
func nullJSON(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
