package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// -----------------------------------------------------------------------------
// Compiled Artifact Methods
// -----------------------------------------------------------------------------

const artifactColumns = `id, document_id, source_snapshot, content, storage_key, status, error, compile_run, created_at, updated_at`

// GetOrCreateArtifact returns the artifact owned by a document, creating it as queued if absent.
// The unique index on document_id keeps concurrent callers from creating two rows.
func (db *DB) GetOrCreateArtifact(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	var exists bool
	if err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, documentID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check document: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("document %s: %w", documentID, types.ErrNotFound)
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO compiled_artifacts (id, document_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_id) DO NOTHING`,
		uuid.New(), documentID, string(types.ArtifactQueued),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	a, err := db.GetArtifact(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	return a, nil
}

// GetArtifact retrieves the artifact for a document. Returns nil when none exists.
func (db *DB) GetArtifact(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	var a types.CompiledArtifact
	var status string

	err := db.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM compiled_artifacts WHERE document_id = $1`,
		documentID,
	).Scan(&a.ID, &a.DocumentID, &a.SourceSnapshot, &a.Content, &a.StorageKey,
		&status, &a.Error, &a.CompileRun, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	a.Status = types.ArtifactStatus(status)
	return &a, nil
}

// UpdateArtifactStatus moves an artifact to a new status and records errMsg (nil clears it).
func (db *DB) UpdateArtifactStatus(ctx context.Context, documentID uuid.UUID, to types.ArtifactStatus, errMsg *string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE compiled_artifacts SET status = $2, error = $3, updated_at = NOW()
		 WHERE document_id = $1 AND status = ANY($4)`,
		documentID, string(to), errMsg, artifactSources(to),
	)
	if err != nil {
		return fmt.Errorf("failed to update artifact status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.artifactConflict(ctx, documentID, to, uuid.Nil)
	}
	return nil
}

// ClaimArtifact moves the artifact to compiling and records runID as its owner.
// A compiled or failed artifact is re-queued and claimed in the same statement.
func (db *DB) ClaimArtifact(ctx context.Context, documentID, runID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE compiled_artifacts SET status = $2, compile_run = $3, error = NULL, updated_at = NOW()
		 WHERE document_id = $1`,
		documentID, string(types.ArtifactCompiling), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to claim artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	return nil
}

// FailArtifact marks the artifact failed when runID owns it, or when it is
// still queued and no run has started compiling it.
func (db *DB) FailArtifact(ctx context.Context, documentID, runID uuid.UUID, msg string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE compiled_artifacts SET status = $2, error = $3, updated_at = NOW()
		 WHERE document_id = $1 AND status = ANY($4)
		   AND (status = $5 OR compile_run = $6)`,
		documentID, string(types.ArtifactFailed), msg, artifactSources(types.ArtifactFailed),
		string(types.ArtifactQueued), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark artifact failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.artifactConflict(ctx, documentID, types.ArtifactFailed, runID)
	}
	return nil
}

// SaveCompiledOutput writes the snapshot, content and compiled status in one statement,
// so a reader never observes content that does not match its snapshot. With a
// RunID the write only applies while that run still owns the artifact.
func (db *DB) SaveCompiledOutput(ctx context.Context, documentID uuid.UUID, out types.CompiledOutput) error {
	var storageKey *string
	if out.StorageKey != "" {
		storageKey = &out.StorageKey
	}
	var owner *uuid.UUID
	if out.RunID != uuid.Nil {
		owner = &out.RunID
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE compiled_artifacts
		 SET source_snapshot = $2, content = $3, storage_key = COALESCE($4, storage_key),
		     status = $5, error = NULL, updated_at = NOW()
		 WHERE document_id = $1 AND status = ANY($6)
		   AND ($7::uuid IS NULL OR compile_run = $7)`,
		documentID, out.SourceSnapshot, out.Content, storageKey,
		string(types.ArtifactCompiled), artifactSources(types.ArtifactCompiled), owner,
	)
	if err != nil {
		return fmt.Errorf("failed to save compiled output: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.artifactConflict(ctx, documentID, types.ArtifactCompiled, out.RunID)
	}
	return nil
}

// artifactConflict explains why a conditional artifact update matched no row.
func (db *DB) artifactConflict(ctx context.Context, documentID uuid.UUID, to types.ArtifactStatus, runID uuid.UUID) error {
	var current string
	var owner *uuid.UUID
	err := db.pool.QueryRow(ctx,
		`SELECT status, compile_run FROM compiled_artifacts WHERE document_id = $1`, documentID,
	).Scan(&current, &owner)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
		}
		return fmt.Errorf("failed to read artifact status: %w", err)
	}
	if err := lifecycle.ArtifactTransition(types.ArtifactStatus(current), to); err != nil {
		return err
	}
	if runID != uuid.Nil && (owner == nil || *owner != runID) {
		return types.ErrSuperseded
	}
	return &lifecycle.TransitionError{Entity: "artifact", From: current, To: string(to)}
}

func artifactSources(to types.ArtifactStatus) []string {
	sources := lifecycle.ArtifactSources(to)
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}
