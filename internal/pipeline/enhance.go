package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// EnhanceResult is the output of a completed enhancement run.
type EnhanceResult struct {
	JobID         uuid.UUID `json:"jobId"`
	SearchQueries []string  `json:"searchQueries"`
}

// enhance compares a document's structured data against a job description and
// stores requirements, suggestions and search queries on the job context.
func (p *pipelines) enhance(ctx context.Context, run *workflow.Run) (any, error) {
	var in JobEnhance
	if err := decodePayload(run, &in); err != nil {
		return nil, err
	}
	store := p.deps.Store

	resume, err := workflow.Step(ctx, run, steps.GetStructuredData, func(ctx context.Context) (json.RawMessage, error) {
		doc, err := store.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, workflow.NonRetriable(fmt.Errorf("document %s: %w", in.DocumentID, types.ErrNotFound))
		}
		if len(doc.StructuredData) == 0 {
			return nil, &ValidationError{Field: "documentId", Message: "document has no structured data yet"}
		}
		return doc.StructuredData, nil
	})
	if err != nil {
		return nil, err
	}

	requirements, err := workflow.Step(ctx, run, steps.StructureJob, func(ctx context.Context) (*types.JobRequirements, error) {
		return p.deps.Structurer.StructureJob(ctx, in.JobDescription)
	})
	if err != nil {
		return nil, err
	}

	enhancement, err := workflow.Step(ctx, run, steps.EnhanceResume, func(ctx context.Context) (*types.Enhancement, error) {
		title := in.JobTitle
		if title == "" {
			jc, err := store.GetJobContext(ctx, in.JobID)
			if err != nil {
				return nil, err
			}
			if jc != nil {
				title = jc.Title
			}
		}
		return p.deps.Structurer.Enhance(ctx, resume, title, requirements)
	})
	if err != nil {
		return nil, err
	}

	if err := workflow.Do(ctx, run, steps.SaveJob, func(ctx context.Context) error {
		reqJSON, err := json.Marshal(requirements)
		if err != nil {
			return workflow.NonRetriable(fmt.Errorf("failed to encode requirements: %w", err))
		}
		return store.SaveJobEnrichment(ctx, in.JobID, types.JobEnrichment{
			Requirements:  reqJSON,
			Enhancement:   enhancement,
			SearchQueries: enhancement.SearchQueries,
		})
	}); err != nil {
		return nil, err
	}

	return EnhanceResult{JobID: in.JobID, SearchQueries: enhancement.SearchQueries}, nil
}
