package registry

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in a map. It backs tests and local runs without a
// database.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Create(_ context.Context, id, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = Job{
		ID:        id,
		Kind:      kind,
		State:     StateQueued,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) SetState(_ context.Context, id, state, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.State = state
	j.Detail = detail
	j.UpdatedAt = time.Now()
	s.jobs[id] = j
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}
