package events

import (
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskChangedEvent is emitted after a task mutation is committed. Every kind
// travels on one subject so a consumer sees a task's changes in publish order.
//
// Task carries the complete post-commit state for CREATED and UPDATED and is nil
// for DELETED.
type TaskChangedEvent struct {
	Kind       domain.EventKind `json:"kind"`
	TaskID     string           `json:"task_id"`
	Version    int64            `json:"version"`
	Task       *domain.Task     `json:"task,omitempty"`
	ActorID    string           `json:"actor_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// TaskChangedV1 is the typed event definition for task mutations.
// Subject: events.task.v1.task-changed
var TaskChangedV1 = helper.EventDefinition[TaskChangedEvent](
	"task", "TaskChanged", "v1",
)
