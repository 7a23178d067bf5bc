package task

import "time"

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventCreated EventKind = "CREATED"
	EventUpdated EventKind = "UPDATED"
	EventDeleted EventKind = "DELETED"
)

// Event describes a committed mutation. Task is nil for deletions.
// Version is the committed version (for deletes, the version that was removed).
type Event struct {
	Kind       EventKind
	TaskID     string
	Version    int64
	Task       *Task
	ActorID    string
	OccurredAt time.Time
}
