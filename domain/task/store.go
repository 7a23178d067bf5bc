package task

import "context"

// NoVersion as the expected version of ConditionalPut means the record must not exist yet.
const NoVersion int64 = -1

// Store is durable task storage keyed by ID with version-checked writes.
//
// ConditionalPut writes t only if the stored version equals expectedVersion (or, for
// NoVersion, if no record exists). It returns a *ConflictError on mismatch and a
// *NotFoundError when the record is gone. Delete follows the same rules.
type Store interface {
	Get(ctx context.Context, id string) (*Task, error)
	ConditionalPut(ctx context.Context, id string, expectedVersion int64, t *Task) (*Task, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
	Query(ctx context.Context, q Query) (Page[*Task], error)
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TaskNotFound builds the NotFound error for a task ID.
func TaskNotFound(id string) error {
	return &NotFoundError{Resource: "Task", ID: id}
}

// UserNotFound builds the NotFound error for a user ID.
func UserNotFound(id string) error {
	return &NotFoundError{Resource: "User", ID: id}
}
