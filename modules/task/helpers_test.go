package task

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// fakeUsers resolves a fixed set of user IDs.
type fakeUsers struct {
	users map[string]userdomain.Summary
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{users: make(map[string]userdomain.Summary)}
	for _, id := range ids {
		f.users[id] = userdomain.Summary{ID: id, Username: id, Email: id + "@example.com", Name: id}
	}
	return f
}

func (f *fakeUsers) Resolve(_ context.Context, userID string) (*userdomain.Summary, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.UserNotFound(userID)
	}
	return &u, nil
}

// recordingNotifier keeps dispatched events in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingNotifier) Dispatch(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) snapshot() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingNotifier) {
	t.Helper()
	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, newFakeUsers("user-1", "user-2", "user-3"), notifier, newMockLogger())
	return svc, store, notifier
}

func seedTask(t *testing.T, store domain.Store, id string, mutate func(*domain.Task)) *domain.Task {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tk := &domain.Task{
		ID:        id,
		Title:     "Task " + id,
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMed,
		CreatedBy: "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(tk)
	}
	saved, err := store.ConditionalPut(context.Background(), id, domain.NoVersion, tk)
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return saved
}

func ptr[T any](v T) *T {
	return &v
}
