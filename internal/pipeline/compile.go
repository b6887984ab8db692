package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/sandbox"
	"github.com/jonathan/resume-pipeline/internal/storage"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// CompileResult is the output of a completed compilation run.
type CompileResult struct {
	DocumentID uuid.UUID `json:"documentId"`
	Bytes      int       `json:"bytes"`
	StorageKey string    `json:"storageKey,omitempty"`
	// Superseded is set when a newer run claimed the artifact first and this
	// run's output was discarded.
	Superseded bool `json:"superseded,omitempty"`
}

// CompileLockKey is the lock that serializes compilation of one document's artifact.
func CompileLockKey(documentID uuid.UUID) string {
	return "compile:" + documentID.String()
}

// compile renders the document's current markup to PDF and stores it on the artifact.
// Runs for the same artifact hold a per-artifact lock so compilations never
// interleave. Each run claims the artifact in mark-compiling and only the
// latest claimant may write its output, so the last request wins even when an
// older run resumes after a retry.
func (p *pipelines) compile(ctx context.Context, run *workflow.Run) (any, error) {
	var in CompileRequested
	if err := decodePayload(run, &in); err != nil {
		return nil, err
	}
	store := p.deps.Store

	lockCtx, cancel := context.WithTimeout(ctx, p.deps.LockTimeout)
	unlock, err := p.deps.Locker.Lock(lockCtx, CompileLockKey(in.DocumentID))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to lock artifact for %s: %w", in.DocumentID, err)
	}
	defer unlock()

	source, err := workflow.Step(ctx, run, steps.LoadSource, func(ctx context.Context) (string, error) {
		doc, err := store.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return "", err
		}
		if doc == nil {
			return "", workflow.NonRetriable(fmt.Errorf("document %s: %w", in.DocumentID, types.ErrNotFound))
		}
		if doc.MarkupSource == nil || strings.TrimSpace(*doc.MarkupSource) == "" {
			return "", &ValidationError{Field: "markupSource", Message: "document has no markup to compile"}
		}
		return *doc.MarkupSource, nil
	})
	if err != nil {
		return nil, err
	}

	if err := workflow.Do(ctx, run, steps.Sanitize, func(context.Context) error {
		return sandbox.Sanitize(source)
	}); err != nil {
		return nil, err
	}

	if err := workflow.Do(ctx, run, steps.MarkCompiling, func(ctx context.Context) error {
		return p.markCompiling(ctx, in.DocumentID, run.ID)
	}); err != nil {
		return nil, err
	}

	pdf, err := workflow.Step(ctx, run, steps.Compile, func(ctx context.Context) ([]byte, error) {
		out, err := p.deps.Compiler.Compile(ctx, source)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, errors.New("compiler returned an empty document")
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	key, err := workflow.Step(ctx, run, steps.StorePDF, func(ctx context.Context) (string, error) {
		if p.deps.Blobs == nil {
			return "", nil
		}
		key := storage.PDFKey(in.DocumentID.String(), run.ID.String())
		if err := p.deps.Blobs.Put(ctx, key, pdf, "application/pdf"); err != nil {
			return "", fmt.Errorf("failed to store pdf: %w", err)
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if err := steps.ValidateDependencies(ctx, run.Store(), run.ID, steps.FunctionCompile, steps.MarkCompiled); err != nil {
		return nil, err
	}
	saved, err := workflow.Step(ctx, run, steps.MarkCompiled, func(ctx context.Context) (bool, error) {
		err := store.SaveCompiledOutput(ctx, in.DocumentID, types.CompiledOutput{
			RunID:          run.ID,
			SourceSnapshot: source,
			Content:        pdf,
			StorageKey:     key,
		})
		if errors.Is(err, types.ErrSuperseded) {
			run.Logger().Info("compiled output discarded for a newer run", "document_id", in.DocumentID)
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	return CompileResult{DocumentID: in.DocumentID, Bytes: len(pdf), StorageKey: key, Superseded: !saved}, nil
}

// markCompiling makes runID the owner of the artifact. A finished artifact is
// re-queued by the claim so a newer run can overwrite an older result.
func (p *pipelines) markCompiling(ctx context.Context, documentID, runID uuid.UUID) error {
	if _, err := p.deps.Store.GetOrCreateArtifact(ctx, documentID); err != nil {
		return err
	}
	return p.deps.Store.ClaimArtifact(ctx, documentID, runID)
}

// compileFailed records the terminal failure on the artifact.
func (p *pipelines) compileFailed(ctx context.Context, run *workflow.Run, cause error) error {
	var in CompileRequested
	if err := run.Event.Decode(&in); err != nil || in.DocumentID == uuid.Nil {
		return nil
	}
	a, err := p.deps.Store.GetArtifact(ctx, in.DocumentID)
	if err != nil || a == nil {
		return err
	}
	err = p.deps.Store.FailArtifact(ctx, in.DocumentID, run.ID, cause.Error())
	var terr *lifecycle.TransitionError
	if errors.As(err, &terr) || errors.Is(err, types.ErrSuperseded) {
		// Another run owns or already finished the artifact.
		run.Logger().Warn("artifact left unchanged after failed compilation",
			"document_id", in.DocumentID, "status", a.Status, "cause", cause)
		return nil
	}
	return err
}
