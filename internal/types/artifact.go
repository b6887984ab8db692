package types

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactStatus is the compilation state of a CompiledArtifact.
type ArtifactStatus string

// Artifact statuses
const (
	ArtifactQueued    ArtifactStatus = "queued"
	ArtifactCompiling ArtifactStatus = "compiling"
	ArtifactCompiled  ArtifactStatus = "compiled"
	ArtifactFailed    ArtifactStatus = "failed"
)

// CompiledArtifact is the single compilation record owned by a Document.
// SourceSnapshot is always the exact markup that produced Content.
// CompileRun is the workflow run that last claimed it for compilation.
type CompiledArtifact struct {
	ID             uuid.UUID      `json:"id"`
	DocumentID     uuid.UUID      `json:"document_id"`
	SourceSnapshot *string        `json:"source_snapshot,omitempty"`
	Content        []byte         `json:"-"`
	StorageKey     *string        `json:"storage_key,omitempty"`
	Status         ArtifactStatus `json:"status"`
	Error          *string        `json:"error,omitempty"`
	CompileRun     *uuid.UUID     `json:"compile_run,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasContent reports whether the artifact carries compiled output.
func (a *CompiledArtifact) HasContent() bool {
	return a != nil && (len(a.Content) > 0 || a.StorageKey != nil)
}

// CompiledOutput is written onto an artifact in a single update.
// A non-nil RunID only lands while that run still owns the artifact.
type CompiledOutput struct {
	RunID          uuid.UUID
	SourceSnapshot string
	Content        []byte
	StorageKey     string
}
