package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redink-dev/redink/internal/correct"
)

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store. It is the default when no database is
// configured and the test double everywhere else; task history does not
// survive a restart.
type MemStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tasks: make(map[string]*Task)}
}

// Create implements Store.
func (s *MemStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = clone(t)
	return nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

// List implements Store.
func (s *MemStore) List(_ context.Context) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateProgress implements Store.
func (s *MemStore) UpdateProgress(_ context.Context, id string, ev correct.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Percent = ev.Percent
	t.Completed = ev.Completed
	t.Total = ev.Total
	t.ElapsedSeconds = ev.Elapsed.Seconds()
	t.RemainingSeconds = ev.Remaining.Seconds()
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete implements Store.
func (s *MemStore) Complete(_ context.Context, id string, result []correct.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.Result = append([]correct.Item(nil), result...)
	t.Percent = 100
	t.RemainingSeconds = 0
	t.UpdatedAt = now
	t.FinishedAt = &now
	return nil
}

// Fail implements Store.
func (s *MemStore) Fail(_ context.Context, id string, kind, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.Status = StatusFailed
	t.ErrorKind = kind
	t.ErrorMsg = msg
	t.UpdatedAt = now
	t.FinishedAt = &now
	return nil
}

// clone copies a task so callers cannot mutate stored state.
func clone(t *Task) *Task {
	c := *t
	c.Result = append([]correct.Item(nil), t.Result...)
	if t.FinishedAt != nil {
		ts := *t.FinishedAt
		c.FinishedAt = &ts
	}
	return &c
}
