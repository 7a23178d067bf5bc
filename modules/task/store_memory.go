package task

import (
	"context"
	"sort"
	"sync"

	domain "github.com/example/kanban-tasks/domain/task"
)

// MemoryStore keeps tasks in a map. Conditional writes compare versions under the lock.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

var _ domain.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*domain.Task),
	}
}

// Get returns a copy of the stored task.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.TaskNotFound(id)
	}
	return t.Clone(), nil
}

// ConditionalPut writes t when the stored version equals expectedVersion.
func (s *MemoryStore) ConditionalPut(_ context.Context, id string, expectedVersion int64, t *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	switch {
	case expectedVersion == domain.NoVersion && ok:
		return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: existing.Version}
	case expectedVersion != domain.NoVersion && !ok:
		return nil, domain.TaskNotFound(id)
	case ok && existing.Version != expectedVersion:
		return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: existing.Version}
	}

	stored := t.Clone()
	stored.ID = id
	s.tasks[id] = stored
	return stored.Clone(), nil
}

// Delete removes the task when the stored version equals expectedVersion.
func (s *MemoryStore) Delete(_ context.Context, id string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return domain.TaskNotFound(id)
	}
	if existing.Version != expectedVersion {
		return &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: existing.Version}
	}
	delete(s.tasks, id)
	return nil
}

// Query filters, sorts and pages the stored tasks.
func (s *MemoryStore) Query(_ context.Context, q domain.Query) (domain.Page[*domain.Task], error) {
	s.mu.RLock()
	matched := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if q.Filter.Matches(t) {
			matched = append(matched, t.Clone())
		}
	}
	s.mu.RUnlock()

	return pageTasks(matched, q), nil
}

// pageTasks sorts already-filtered tasks and cuts the requested page.
func pageTasks(matched []*domain.Task, q domain.Query) domain.Page[*domain.Task] {
	sort.Slice(matched, func(i, j int) bool { return q.Sort.Less(matched[i], matched[j]) })

	total := int64(len(matched))
	start := min(q.Page.Offset(), len(matched))
	end := min(start+q.Page.Size, len(matched))

	return domain.NewPage(matched[start:end], total, q.Page)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
