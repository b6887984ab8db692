package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for local mode and tests.
type MemoryStore struct {
	mu    sync.Mutex
	runs  map[uuid.UUID]RunRecord
	steps map[uuid.UUID]map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:  make(map[uuid.UUID]RunRecord),
		steps: make(map[uuid.UUID]map[string][]byte),
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, runID uuid.UUID, update RunUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	rec.Status = update.Status
	rec.Attempts = update.Attempts
	rec.Error = update.Error
	if update.Output != nil {
		rec.Output = append([]byte(nil), update.Output...)
	}
	if update.Status == RunCompleted || update.Status == RunFailed {
		now := time.Now().UTC()
		rec.CompletedAt = &now
	}
	s.runs[runID] = rec
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID uuid.UUID) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) LoadStep(_ context.Context, runID uuid.UUID, step string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.steps[runID][step]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), out...), true, nil
}

func (s *MemoryStore) SaveStep(_ context.Context, runID uuid.UUID, step string, output []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.steps[runID]
	if !ok {
		m = make(map[string][]byte)
		s.steps[runID] = m
	}
	m[step] = append([]byte(nil), output...)
	return nil
}

// Runs returns a snapshot of all runs, for inspection in tests and the local API.
func (s *MemoryStore) Runs() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out
}
