package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// InMemoryRunStore implements RunStore for testing and for the MCP server
// when no project directory is writable.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]RunRecord
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]RunRecord)}
}

// SaveRun stores a copy of rec.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, rec *RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareRecord(rec)
	if _, exists := s.runs[rec.ID]; exists {
		return "", fmt.Errorf("run %s already exists", rec.ID)
	}
	s.runs[rec.ID] = cloneRecord(*rec)
	return rec.ID, nil
}

// GetRun returns a run by exact ID or unique ID prefix.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	if rec, ok := s.runs[id]; ok {
		out := cloneRecord(rec)
		return &out, nil
	}

	var match *RunRecord
	for runID, rec := range s.runs {
		if !strings.HasPrefix(runID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		out := cloneRecord(rec)
		match = &out
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return match, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, cloneRecord(rec))
	}
	slices.SortFunc(out, func(a, b RunRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRun removes a run by exact ID.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

func cloneRecord(rec RunRecord) RunRecord {
	rec.Percentiles = slices.Clone(rec.Percentiles)
	return rec
}
