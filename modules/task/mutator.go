package task

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
)

// MutateFunc edits a copy of the current task. Returning an error aborts the write.
type MutateFunc func(t *domain.Task) error

// Mutator wraps every task write in a version-checked store operation.
// It holds no locks and never retries: concurrent writers race on the store's
// conditional put and the loser gets a *domain.ConflictError.
type Mutator struct {
	store domain.Store
	now   func() time.Time
}

// NewMutator creates a Mutator over store.
func NewMutator(store domain.Store) *Mutator {
	return &Mutator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create persists t as a new record at version 0.
func (m *Mutator) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	t.Version = 0
	saved, err := m.store.ConditionalPut(ctx, t.ID, domain.NoVersion, t)
	if err != nil {
		return nil, asConflict(err, t.ID, domain.NoVersion)
	}
	return saved, nil
}

// Update re-reads the task, checks expected against the stored version, applies fn to a
// copy and writes it back with the version incremented and UpdatedAt refreshed.
func (m *Mutator) Update(ctx context.Context, id string, expected int64, fn MutateFunc) (*domain.Task, error) {
	current, err := freshGet(ctx, m.store, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expected {
		return nil, &domain.ConflictError{TaskID: id, Expected: expected, Actual: current.Version}
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	// identity and provenance are not editable
	next.ID = current.ID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt

	next.Version = current.Version + 1
	next.UpdatedAt = m.now()

	saved, err := m.store.ConditionalPut(ctx, id, expected, next)
	if err != nil {
		return nil, asConflict(err, id, expected)
	}
	return saved, nil
}

// Delete removes the task if expected matches and it is not IN_PROGRESS.
// It returns the state that was removed.
func (m *Mutator) Delete(ctx context.Context, id string, expected int64) (*domain.Task, error) {
	current, err := freshGet(ctx, m.store, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expected {
		return nil, &domain.ConflictError{TaskID: id, Expected: expected, Actual: current.Version}
	}
	if current.Status == domain.StatusInProgress {
		return nil, &domain.IllegalOperationError{
			Reason: "Cannot delete a task that is in progress. Please move it to another status first.",
		}
	}

	if err := m.store.Delete(ctx, id, expected); err != nil {
		return nil, asConflict(err, id, expected)
	}
	return current, nil
}

// asConflict normalises a commit-time conflict into the same *domain.ConflictError a
// pre-flight check produces. Other errors pass through.
func asConflict(err error, id string, expected int64) error {
	if !errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return &domain.ConflictError{TaskID: id, Expected: expected, Actual: ce.Actual}
	}
	return &domain.ConflictError{TaskID: id, Expected: expected, Actual: -1}
}
