// Package memstore is an in-memory store.Store used by tests and the
// "memory" backend.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// Store keeps tasks and history in memory. The zero value is not usable;
// call New.
type Store struct {
	mu      sync.Mutex
	tasks   map[int]*task.Task
	nextID  int
	entries []history.Entry
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Swapper = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{tasks: make(map[int]*task.Task), nextID: 1}
}

func (s *Store) GetTask(_ context.Context, id int) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) ListTasks(_ context.Context) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *task.Task) int { return a.ID - b.ID })
	return out, nil
}

func (s *Store) CreateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.PrepareNew(t, time.Now())
	t.ID = s.nextID
	s.nextID++
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, id int, c store.StatusChange) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	store.ApplyStatus(t, c)
	return t.Clone(), nil
}

func (s *Store) SwapStatus(_ context.Context, id, revision int, c store.StatusChange) (*task.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false, store.ErrNotFound
	}
	if t.Revision != revision {
		return nil, false, nil
	}
	store.ApplyStatus(t, c)
	return t.Clone(), true, nil
}

func (s *Store) UpdateAudit(_ context.Context, id int, c store.AuditChange) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	store.ApplyAudit(t, c)
	return t.Clone(), nil
}

func (s *Store) AppendHistory(_ context.Context, e history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) History(_ context.Context, taskID int) ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []history.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].TaskID == taskID {
			out = append(out, s.entries[i])
		}
	}
	store.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Close() error { return nil }
