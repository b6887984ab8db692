// Package memstore is an in-memory implementation of every store the pipeline
// needs. It backs local mode (no DATABASE_URL) and the tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// Store holds documents, artifacts, job contexts, cache rows and workflow runs.
type Store struct {
	*workflow.MemoryStore

	mu        sync.RWMutex
	documents map[uuid.UUID]types.Document
	artifacts map[uuid.UUID]types.CompiledArtifact // by document id
	jobs      map[uuid.UUID]types.JobContext
	cache     []types.SearchCacheEntry
	now       func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		MemoryStore: workflow.NewMemoryStore(),
		documents:   make(map[uuid.UUID]types.Document),
		artifacts:   make(map[uuid.UUID]types.CompiledArtifact),
		jobs:        make(map[uuid.UUID]types.JobContext),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

func (s *Store) CreateDocument(_ context.Context, doc *types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = types.DocumentUploaded
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	s.documents[doc.ID] = cloneDocument(*doc)
	return nil
}

func (s *Store) GetDocument(_ context.Context, id uuid.UUID) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (s *Store) UpdateDocumentStatus(_ context.Context, id uuid.UUID, to types.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.transitionDocument(id, to)
	if err != nil {
		return err
	}
	s.documents[id] = doc
	return nil
}

func (s *Store) SaveDocumentResult(_ context.Context, id uuid.UUID, res types.DocumentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.transitionDocument(id, res.Status)
	if err != nil {
		return err
	}
	raw := res.RawText
	markup := res.MarkupSource
	doc.RawText = &raw
	doc.StructuredData = append([]byte(nil), res.StructuredData...)
	doc.MarkupSource = &markup
	s.documents[id] = doc
	return nil
}

func (s *Store) UpdateDocumentMarkup(_ context.Context, id uuid.UUID, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	doc.MarkupSource = &markup
	now := s.now().UTC()
	doc.UpdatedAt = &now
	s.documents[id] = doc
	return nil
}

// transitionDocument applies a status change under s.mu.
func (s *Store) transitionDocument(id uuid.UUID, to types.DocumentStatus) (types.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return types.Document{}, fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	if err := lifecycle.DocumentTransition(doc.Status, to); err != nil {
		return types.Document{}, err
	}
	doc.Status = to
	now := s.now().UTC()
	doc.UpdatedAt = &now
	return doc, nil
}

func cloneDocument(d types.Document) types.Document {
	d.StructuredData = append([]byte(nil), d.StructuredData...)
	if d.RawText != nil {
		v := *d.RawText
		d.RawText = &v
	}
	if d.MarkupSource != nil {
		v := *d.MarkupSource
		d.MarkupSource = &v
	}
	return d
}

// -----------------------------------------------------------------------------
// Compiled artifacts
// -----------------------------------------------------------------------------

func (s *Store) GetOrCreateArtifact(_ context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, types.ErrNotFound)
	}
	a, ok := s.artifacts[documentID]
	if !ok {
		now := s.now().UTC()
		a = types.CompiledArtifact{
			ID:         uuid.New(),
			DocumentID: documentID,
			Status:     types.ArtifactQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.artifacts[documentID] = a
	}
	out := cloneArtifact(a)
	return &out, nil
}

func (s *Store) GetArtifact(_ context.Context, documentID uuid.UUID) (*types.CompiledArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[documentID]
	if !ok {
		return nil, nil
	}
	out := cloneArtifact(a)
	return &out, nil
}

func (s *Store) UpdateArtifactStatus(_ context.Context, documentID uuid.UUID, to types.ArtifactStatus, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.transitionArtifact(documentID, to)
	if err != nil {
		return err
	}
	a.Error = errMsg
	s.artifacts[documentID] = a
	return nil
}

// ClaimArtifact moves the artifact to compiling on behalf of runID, re-queueing
// a finished artifact first.
func (s *Store) ClaimArtifact(_ context.Context, documentID, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[documentID]
	if !ok {
		return fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	if a.Status == types.ArtifactCompiled || a.Status == types.ArtifactFailed {
		queued, err := s.transitionArtifact(documentID, types.ArtifactQueued)
		if err != nil {
			return err
		}
		s.artifacts[documentID] = queued
	}
	a, err := s.transitionArtifact(documentID, types.ArtifactCompiling)
	if err != nil {
		return err
	}
	owner := runID
	a.CompileRun = &owner
	a.Error = nil
	s.artifacts[documentID] = a
	return nil
}

// FailArtifact marks the artifact failed when runID owns it, or when it is
// still queued and no run has started compiling it.
func (s *Store) FailArtifact(_ context.Context, documentID, runID uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.artifacts[documentID]
	if !ok {
		return fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	if current.Status != types.ArtifactQueued && !ownedBy(current, runID) {
		if err := lifecycle.ArtifactTransition(current.Status, types.ArtifactFailed); err != nil {
			return err
		}
		return types.ErrSuperseded
	}
	a, err := s.transitionArtifact(documentID, types.ArtifactFailed)
	if err != nil {
		return err
	}
	a.Error = &msg
	s.artifacts[documentID] = a
	return nil
}

func (s *Store) SaveCompiledOutput(_ context.Context, documentID uuid.UUID, out types.CompiledOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.artifacts[documentID]; ok && out.RunID != uuid.Nil && !ownedBy(current, out.RunID) {
		if err := lifecycle.ArtifactTransition(current.Status, types.ArtifactCompiled); err != nil {
			return err
		}
		return types.ErrSuperseded
	}
	a, err := s.transitionArtifact(documentID, types.ArtifactCompiled)
	if err != nil {
		return err
	}
	snapshot := out.SourceSnapshot
	a.SourceSnapshot = &snapshot
	a.Content = append([]byte(nil), out.Content...)
	if out.StorageKey != "" {
		key := out.StorageKey
		a.StorageKey = &key
	}
	a.Error = nil
	s.artifacts[documentID] = a
	return nil
}

func (s *Store) transitionArtifact(documentID uuid.UUID, to types.ArtifactStatus) (types.CompiledArtifact, error) {
	a, ok := s.artifacts[documentID]
	if !ok {
		return types.CompiledArtifact{}, fmt.Errorf("artifact for document %s: %w", documentID, types.ErrNotFound)
	}
	if err := lifecycle.ArtifactTransition(a.Status, to); err != nil {
		return types.CompiledArtifact{}, err
	}
	a.Status = to
	a.UpdatedAt = s.now().UTC()
	return a, nil
}

func ownedBy(a types.CompiledArtifact, runID uuid.UUID) bool {
	return a.CompileRun != nil && *a.CompileRun == runID
}

func cloneArtifact(a types.CompiledArtifact) types.CompiledArtifact {
	a.Content = append([]byte(nil), a.Content...)
	if a.SourceSnapshot != nil {
		v := *a.SourceSnapshot
		a.SourceSnapshot = &v
	}
	if a.CompileRun != nil {
		v := *a.CompileRun
		a.CompileRun = &v
	}
	return a
}

// -----------------------------------------------------------------------------
// Job contexts
// -----------------------------------------------------------------------------

func (s *Store) CreateJobContext(_ context.Context, jc *types.JobContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jc.ID == uuid.Nil {
		jc.ID = uuid.New()
	}
	if jc.CreatedAt.IsZero() {
		jc.CreatedAt = s.now().UTC()
	}
	s.jobs[jc.ID] = *jc
	return nil
}

func (s *Store) GetJobContext(_ context.Context, id uuid.UUID) (*types.JobContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jc, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &jc, nil
}

func (s *Store) SaveJobEnrichment(_ context.Context, id uuid.UUID, e types.JobEnrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	jc, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job context %s: %w", id, types.ErrNotFound)
	}
	jc.Requirements = append([]byte(nil), e.Requirements...)
	jc.Enhancement = e.Enhancement
	jc.SearchQueries = append([]string(nil), e.SearchQueries...)
	s.jobs[id] = jc
	return nil
}

func (s *Store) LatestJobContext(_ context.Context, userID uuid.UUID) (*types.JobContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *types.JobContext
	for _, jc := range s.jobs {
		if jc.UserID == nil || *jc.UserID != userID {
			continue
		}
		if latest == nil || jc.CreatedAt.After(latest.CreatedAt) {
			c := jc
			latest = &c
		}
	}
	return latest, nil
}

// -----------------------------------------------------------------------------
// Search cache
// -----------------------------------------------------------------------------

func (s *Store) InsertSearchCache(_ context.Context, entry *types.SearchCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	e := *entry
	e.Data = append([]types.JobListing(nil), entry.Data...)
	s.cache = append(s.cache, e)
	return nil
}

func (s *Store) LatestSearchCache(_ context.Context, query, location string, since time.Time) (*types.SearchCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *types.SearchCacheEntry
	// Newest first; on equal timestamps the later insert wins.
	for i := len(s.cache) - 1; i >= 0; i-- {
		e := s.cache[i]
		if e.Query != query || e.Location != location || !e.CreatedAt.After(since) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			c := e
			latest = &c
		}
	}
	if latest == nil {
		return nil, nil
	}
	latest.Data = append([]types.JobListing(nil), latest.Data...)
	return latest, nil
}

// SearchCacheRows returns the number of stored cache rows for a key.
func (s *Store) SearchCacheRows(query, location string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.cache {
		if e.Query == query && e.Location == location {
			n++
		}
	}
	return n
}
