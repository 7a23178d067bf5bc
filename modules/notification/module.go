package notification

import (
	"context"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// NotificationModule consumes task events and relays them to WebSocket subscribers.
type NotificationModule struct {
	hub       *Hub
	activity  *ActivityLog
	logger    types.Logger
	cancelHub context.CancelFunc
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)
var _ mono.HealthCheckableModule = (*NotificationModule)(nil)

// NewModule creates a new NotificationModule keeping activityLimit recent entries.
func NewModule(activityLimit int, logger types.Logger) *NotificationModule {
	logger = logger.WithModule("notification")
	return &NotificationModule{
		hub:      NewHub(logger),
		activity: NewActivityLog(activityLimit),
		logger:   logger,
	}
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskChangedV1, m.handleTaskChanged, m); err != nil {
		return fmt.Errorf("failed to register TaskChanged consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "TaskChanged")
	return nil
}

// handleTaskChanged relays one committed change. Deletions carry only the task ID.
func (m *NotificationModule) handleTaskChanged(_ context.Context, event events.TaskChangedEvent, _ *mono.Msg) error {
	m.logger.Debug("Relaying task event", "type", string(event.Kind), "task_id", event.TaskID, "version", event.Version)

	entry := Activity{
		Type:       string(event.Kind),
		TaskID:     event.TaskID,
		Version:    event.Version,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt,
	}

	switch event.Kind {
	case domain.EventCreated, domain.EventUpdated:
		if event.Task == nil {
			return fmt.Errorf("%s event for %s has no task", event.Kind, event.TaskID)
		}
		entry.Title = event.Task.Title
		m.hub.Broadcast(TopicTasks, event.TaskID, Message{Type: string(event.Kind), Payload: event.Task})
	case domain.EventDeleted:
		m.hub.Broadcast(TopicTasks, event.TaskID, Message{Type: string(event.Kind), Payload: event.TaskID})
	default:
		return fmt.Errorf("unknown task event kind %q", event.Kind)
	}

	m.activity.Record(entry)
	return nil
}

func (m *NotificationModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Module started, WebSocket hub running", "topic", TopicTasks)
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Module stopped", "connected_clients", clientCount)
	return nil
}

func (m *NotificationModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"activity_entries":  m.activity.Len(),
		},
	}
}

// Hub returns the WebSocket hub for the API module to serve.
func (m *NotificationModule) Hub() *Hub {
	return m.hub
}

// Activity returns the recent-activity log.
func (m *NotificationModule) Activity() *ActivityLog {
	return m.activity
}
