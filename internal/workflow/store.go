package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a function run.
type RunStatus string

// Run statuses
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the persisted view of a function run.
type RunRecord struct {
	ID          uuid.UUID       `json:"id"`
	FunctionID  string          `json:"function_id"`
	EventID     uuid.UUID       `json:"event_id"`
	EventName   string          `json:"event_name"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      RunStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunUpdate carries the mutable fields of a run.
type RunUpdate struct {
	Status   RunStatus
	Attempts int
	Output   json.RawMessage
	Error    *string
}

// Store persists runs and memoized step outputs keyed by (run id, step name).
type Store interface {
	CreateRun(ctx context.Context, run *RunRecord) error
	UpdateRun(ctx context.Context, runID uuid.UUID, update RunUpdate) error
	GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error)
	LoadStep(ctx context.Context, runID uuid.UUID, step string) ([]byte, bool, error)
	SaveStep(ctx context.Context, runID uuid.UUID, step string, output []byte) error
}

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")
