package task

import (
	"context"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/events"
	"github.com/go-monolith/mono"
)

// busPublisher publishes domain events as TaskChangedV1.
type busPublisher struct {
	bus mono.EventBus
}

// NewBusPublisher creates a Publisher backed by the mono EventBus.
func NewBusPublisher(bus mono.EventBus) Publisher {
	return &busPublisher{bus: bus}
}

func (p *busPublisher) Publish(_ context.Context, ev domain.Event) error {
	if p.bus == nil {
		return fmt.Errorf("event bus not set")
	}

	switch ev.Kind {
	case domain.EventCreated, domain.EventUpdated:
		if ev.Task == nil {
			return fmt.Errorf("%s event for %s has no task", ev.Kind, ev.TaskID)
		}
	case domain.EventDeleted:
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	return events.TaskChangedV1.Publish(p.bus, events.TaskChangedEvent{
		Kind:       ev.Kind,
		TaskID:     ev.TaskID,
		Version:    ev.Version,
		Task:       ev.Task,
		ActorID:    ev.ActorID,
		OccurredAt: ev.OccurredAt,
	}, nil)
}
