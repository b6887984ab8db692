package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/cache"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/search"
	"github.com/jonathan/resume-pipeline/internal/storage"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// Search trigger statuses
const (
	SearchCached     = "cached"
	SearchProcessing = "processing"
)

// Submitter publishes events. workflow.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, name string, payload any) (uuid.UUID, error)
}

// SearchStatus is returned by Service.Search.
type SearchStatus struct {
	Status  string             `json:"status"`
	Data    []types.JobListing `json:"data,omitempty"`
	EventID *uuid.UUID         `json:"event_id,omitempty"`
}

// Service is the trigger surface used by the HTTP layer: it writes the
// initial entity state and submits the matching event. Work itself happens
// asynchronously in the registered functions.
type Service struct {
	store  Store
	events Submitter
	cache  *cache.Cache
	blobs  storage.BlobStore
	log    *logger.Logger
}

// NewService creates a Service. blobs may be nil.
func NewService(store Store, events Submitter, c *cache.Cache, blobs storage.BlobStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, events: events, cache: c, blobs: blobs, log: log}
}

// CreateDocument stores an uploaded document and starts ingestion. The upload
// succeeds even when the event cannot be submitted; the failure is logged and
// the document stays uploaded so ingestion can be triggered again.
func (s *Service) CreateDocument(ctx context.Context, in types.NewDocument) (*types.Document, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.RawText) == "" && in.FileURL == "" {
		return nil, &ValidationError{Field: "file_url", Message: "either file_url or raw_text is required"}
	}

	doc := &types.Document{
		UserID:   in.UserID,
		FileURL:  in.FileURL,
		FileName: in.FileName,
		FileType: in.FileType,
		FileSize: in.FileSize,
		Status:   types.DocumentUploaded,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	if _, err := s.events.Submit(ctx, EventDocumentUploaded, DocumentUploaded{
		DocumentID: doc.ID,
		RawText:    in.RawText,
		FileURL:    in.FileURL,
	}); err != nil {
		s.log.Error("failed to start ingestion", "document_id", doc.ID, "error", err)
		return doc, nil
	}
	s.log.Info("document uploaded", "document_id", doc.ID, "file_type", doc.FileType)
	return doc, nil
}

// GetDocument returns a document or a wrapped types.ErrNotFound.
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	return doc, nil
}

// UpdateMarkup stores a user edit of the markup source. Status is unchanged.
func (s *Service) UpdateMarkup(ctx context.Context, id uuid.UUID, source string) error {
	if strings.TrimSpace(source) == "" {
		return &ValidationError{Field: "markup_source", Message: "must not be empty"}
	}
	return s.store.UpdateDocumentMarkup(ctx, id, source)
}

// AttachJob stores a job description for a document and starts enhancement.
// Like CreateDocument, a failed submit is logged and the job context returned.
func (s *Service) AttachJob(ctx context.Context, in types.NewJobContext) (*types.JobContext, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetDocument(ctx, in.DocumentID); err != nil {
		return nil, err
	}

	jc := &types.JobContext{
		UserID:      in.UserID,
		DocumentID:  in.DocumentID,
		Title:       in.Title,
		Description: in.Description,
	}
	if err := s.store.CreateJobContext(ctx, jc); err != nil {
		return nil, err
	}

	if _, err := s.events.Submit(ctx, EventJobEnhance, JobEnhance{
		DocumentID:     in.DocumentID,
		JobID:          jc.ID,
		JobDescription: in.Description,
		JobTitle:       in.Title,
	}); err != nil {
		s.log.Error("failed to start enhancement", "job_id", jc.ID, "error", err)
		return jc, nil
	}
	s.log.Info("job attached", "job_id", jc.ID, "document_id", in.DocumentID)
	return jc, nil
}

// GetJobContext returns a job context or a wrapped types.ErrNotFound.
func (s *Service) GetJobContext(ctx context.Context, id uuid.UUID) (*types.JobContext, error) {
	jc, err := s.store.GetJobContext(ctx, id)
	if err != nil {
		return nil, err
	}
	if jc == nil {
		return nil, fmt.Errorf("job context %s: %w", id, types.ErrNotFound)
	}
	return jc, nil
}

// RequestCompile queues the document's artifact and starts compilation.
func (s *Service) RequestCompile(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.MarkupSource == nil || strings.TrimSpace(*doc.MarkupSource) == "" {
		return nil, &ValidationError{Field: "markup_source", Message: "document has no markup to compile"}
	}

	a, err := s.store.GetOrCreateArtifact(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if a.Status == types.ArtifactCompiled || a.Status == types.ArtifactFailed {
		if err := s.store.UpdateArtifactStatus(ctx, documentID, types.ArtifactQueued, nil); err != nil {
			return nil, err
		}
		a.Status = types.ArtifactQueued
		a.Error = nil
	}

	if _, err := s.events.Submit(ctx, EventCompileRequested, CompileRequested{DocumentID: documentID}); err != nil {
		return nil, err
	}
	s.log.Info("compile requested", "document_id", documentID, "artifact_id", a.ID)
	return a, nil
}

// GetArtifact returns the document's artifact or a wrapped types.ErrNotFound.
func (s *Service) GetArtifact(ctx context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	a, err := s.store.GetArtifact(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	return a, nil
}

// ArtifactPDF returns the compiled PDF, reading the blob store when the row
// only carries a storage key.
func (s *Service) ArtifactPDF(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	a, err := s.GetArtifact(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if a.Status != types.ArtifactCompiled || !a.HasContent() {
		return nil, fmt.Errorf("compiled pdf for document %s: %w", documentID, types.ErrNotFound)
	}
	if len(a.Content) > 0 {
		return a.Content, nil
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("compiled pdf for document %s: %w", documentID, types.ErrNotFound)
	}
	data, err := s.blobs.Get(ctx, *a.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("compiled pdf for document %s: %w", documentID, types.ErrNotFound)
	}
	return data, err
}

// Search returns cached results when they are fresh. Otherwise it starts a
// background search, adding the queries generated for the user's latest job.
func (s *Service) Search(ctx context.Context, userID *uuid.UUID, query, location string) (*SearchStatus, error) {
	query = strings.TrimSpace(query)
	location = strings.TrimSpace(location)
	if query == "" {
		return nil, &ValidationError{Field: "query", Message: "is required"}
	}

	entry, ok, err := s.cache.Get(ctx, query, location)
	if err != nil {
		return nil, err
	}
	if ok {
		return &SearchStatus{Status: SearchCached, Data: entry.Data}, nil
	}

	var queries []string
	if userID != nil {
		jc, err := s.store.LatestJobContext(ctx, *userID)
		if err != nil {
			return nil, err
		}
		if jc != nil {
			queries = jc.SearchQueries
		}
	}

	eventID, err := s.events.Submit(ctx, EventSearchRequested, SearchRequested{
		Query:    query,
		Location: location,
		Queries:  queries,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("search requested", "query", query, "location", location, "extra_queries", len(queries))
	return &SearchStatus{Status: SearchProcessing, EventID: &eventID}, nil
}

// SearchResults is the polling read of the cache.
func (s *Service) SearchResults(ctx context.Context, query, location string) (cache.PollResult, error) {
	return s.cache.Poll(ctx, strings.TrimSpace(query), strings.TrimSpace(location))
}

// GoogleJobsURL builds the fallback link to a Google Jobs search.
func (s *Service) GoogleJobsURL(query, location string) string {
	return search.GoogleJobsURL(strings.TrimSpace(query), strings.TrimSpace(location))
}

// Submit publishes a raw event.
func (s *Service) Submit(ctx context.Context, name string, payload any) (uuid.UUID, error) {
	return s.events.Submit(ctx, name, payload)
}
