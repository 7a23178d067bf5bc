package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KVStore persists tasks as JSON entries in a NATS JetStream key-value bucket.
// Conditional writes ride on the bucket's per-key revision.
type KVStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	bucket jetstream.KeyValue
}

var _ domain.Store = (*KVStore)(nil)

// NewKVStore connects to natsURL and opens bucket, creating it on first use.
func NewKVStore(ctx context.Context, natsURL, bucket string) (*KVStore, error) {
	conn, err := nats.Connect(natsURL, nats.Name("kanban-tasks"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Task records keyed by task ID",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create %s bucket: %w", bucket, err)
		}
	}

	return &KVStore{conn: conn, js: js, bucket: kv}, nil
}

// Get retrieves a task by its ID.
func (s *KVStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	t, _, err := s.load(ctx, id)
	return t, err
}

func (s *KVStore) load(ctx context.Context, id string) (*domain.Task, uint64, error) {
	entry, err := s.bucket.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, domain.TaskNotFound(id)
		}
		return nil, 0, fmt.Errorf("failed to get task: %w", err)
	}

	var t domain.Task
	if err := json.Unmarshal(entry.Value(), &t); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	return &t, entry.Revision(), nil
}

// ConditionalPut writes t when the stored version equals expectedVersion. The write
// is pinned to the revision that was read, so a concurrent writer loses with a conflict.
func (s *KVStore) ConditionalPut(ctx context.Context, id string, expectedVersion int64, t *domain.Task) (*domain.Task, error) {
	stored := t.Clone()
	stored.ID = id
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	if expectedVersion == domain.NoVersion {
		if _, err := s.bucket.Create(ctx, id, data); err != nil {
			if isRevisionMismatch(err) {
				return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
			}
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		return stored, nil
	}

	current, revision, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: current.Version}
	}

	if _, err := s.bucket.Update(ctx, id, data, revision); err != nil {
		if isRevisionMismatch(err) {
			return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return stored, nil
}

// Delete removes the task when the stored version equals expectedVersion.
func (s *KVStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	current, revision, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: current.Version}
	}

	if err := s.bucket.Delete(ctx, id, jetstream.LastRevision(revision)); err != nil {
		if isRevisionMismatch(err) {
			return &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// Query scans every key in the bucket, then filters, sorts and pages in memory.
func (s *KVStore) Query(ctx context.Context, q domain.Query) (domain.Page[*domain.Task], error) {
	matched := make([]*domain.Task, 0)
	lister, err := s.bucket.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return pageTasks(matched, q), nil
	}
	if err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to list task keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		t, _, err := s.load(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue // deleted since the listing started
		}
		if err != nil {
			return domain.Page[*domain.Task]{}, err
		}
		if q.Filter.Matches(t) {
			matched = append(matched, t)
		}
	}

	return pageTasks(matched, q), nil
}

// Ping reports whether the NATS connection is up.
func (s *KVStore) Ping(_ context.Context) error {
	if status := s.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("NATS connection is %s", status)
	}
	return nil
}

// Close closes the NATS connection.
func (s *KVStore) Close() {
	s.conn.Close()
}

// isRevisionMismatch reports whether JetStream rejected a write pinned to a stale revision.
func isRevisionMismatch(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
