// Package pipeline defines the document, enhancement, compilation and search
// functions run by the workflow engine, and the service that triggers them.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/cache"
	"github.com/jonathan/resume-pipeline/internal/fetch"
	"github.com/jonathan/resume-pipeline/internal/lock"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/sandbox"
	"github.com/jonathan/resume-pipeline/internal/storage"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// Event names
const (
	EventDocumentUploaded = "document/uploaded"
	EventJobEnhance       = "job/enhance"
	EventCompileRequested = "compile/requested"
	EventSearchRequested  = "search/requested"
)

// Retry bounds, as additional attempts after the first.
const (
	IngestRetries  = 2
	EnhanceRetries = 2
	CompileRetries = 3
	SearchRetries  = 2
)

// Store is the persistence the pipelines need.
type Store interface {
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, to types.DocumentStatus) error
	SaveDocumentResult(ctx context.Context, id uuid.UUID, res types.DocumentResult) error
	UpdateDocumentMarkup(ctx context.Context, id uuid.UUID, markup string) error

	GetOrCreateArtifact(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error)
	GetArtifact(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error)
	UpdateArtifactStatus(ctx context.Context, documentID uuid.UUID, to types.ArtifactStatus, errMsg *string) error
	ClaimArtifact(ctx context.Context, documentID, runID uuid.UUID) error
	FailArtifact(ctx context.Context, documentID, runID uuid.UUID, msg string) error
	SaveCompiledOutput(ctx context.Context, documentID uuid.UUID, out types.CompiledOutput) error

	CreateJobContext(ctx context.Context, jc *types.JobContext) error
	GetJobContext(ctx context.Context, id uuid.UUID) (*types.JobContext, error)
	SaveJobEnrichment(ctx context.Context, id uuid.UUID, e types.JobEnrichment) error
	LatestJobContext(ctx context.Context, userID uuid.UUID) (*types.JobContext, error)
}

// Structurer turns free text into the structured shapes the pipelines persist.
// ai.Adapter implements it.
type Structurer interface {
	StructureResume(ctx context.Context, rawText string) (*types.ResumeData, error)
	StructureJob(ctx context.Context, description string) (*types.JobRequirements, error)
	Enhance(ctx context.Context, resume json.RawMessage, jobTitle string, req *types.JobRequirements) (*types.Enhancement, error)
}

// MarkupGenerator produces LaTeX source for structured resume data.
type MarkupGenerator interface {
	GenerateMarkup(ctx context.Context, data *types.ResumeData) (string, error)
}

// Fetcher returns raw listings for a set of query variants. search.Aggregator implements it.
type Fetcher interface {
	Fetch(ctx context.Context, queries []string, location string) ([]types.JobListing, error)
}

// Deps are the collaborators shared by the pipeline functions.
type Deps struct {
	Store      Store
	Structurer Structurer
	Markup     MarkupGenerator
	Compiler   sandbox.Client
	Blobs      storage.BlobStore // optional
	Locker     lock.Locker
	Search     Fetcher
	Cache      *cache.Cache
	Download   *fetch.Options // used when a document has to be fetched by URL
	// LockTimeout bounds how long a compile run waits for another run on the same artifact.
	LockTimeout time.Duration
	Logger      *logger.Logger
}

// Functions returns the four pipeline functions bound to deps.
func Functions(deps Deps) []workflow.Function {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewKeyedMutex()
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = 5 * time.Minute
	}
	p := &pipelines{deps: deps}
	return []workflow.Function{
		{
			ID:        steps.FunctionIngest,
			Event:     EventDocumentUploaded,
			Retries:   IngestRetries,
			Handler:   p.ingest,
			OnFailure: p.ingestFailed,
		},
		{
			ID:      steps.FunctionEnhance,
			Event:   EventJobEnhance,
			Retries: EnhanceRetries,
			Handler: p.enhance,
		},
		{
			ID:        steps.FunctionCompile,
			Event:     EventCompileRequested,
			Retries:   CompileRetries,
			Handler:   p.compile,
			OnFailure: p.compileFailed,
		},
		{
			ID:      steps.FunctionSearch,
			Event:   EventSearchRequested,
			Retries: SearchRetries,
			Handler: p.search,
		},
	}
}

// Register adds the pipeline functions to an engine.
func Register(engine *workflow.Engine, deps Deps) error {
	for _, fn := range Functions(deps) {
		if err := engine.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

type pipelines struct {
	deps Deps
}
