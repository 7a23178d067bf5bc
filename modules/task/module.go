package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/kanban-tasks/config"
	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/events"
	"github.com/example/kanban-tasks/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// TaskModule provides task management services (core domain).
type TaskModule struct {
	cfg      config.Config
	logger   types.Logger
	userPort user.UserPort
	eventBus mono.EventBus

	store      domain.Store
	cache      *CachedStore
	closeStore func()
	redis      *redis.Client
	dispatcher *Dispatcher
	service    *Service
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule. The store is opened in Start according to cfg.StoreDriver.
func NewModule(cfg config.Config, logger types.Logger) *TaskModule {
	return &TaskModule{
		cfg:    cfg,
		logger: logger.WithModule("task"),
	}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"user"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "user" {
		m.userPort = user.NewUserAdapter(container)
	}
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskChangedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "patch-task", json.Unmarshal, json.Marshal, m.patchTask,
	); err != nil {
		return fmt.Errorf("failed to register patch-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "search-tasks", json.Unmarshal, json.Marshal, m.searchTasks,
	); err != nil {
		return fmt.Errorf("failed to register search-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-assigned-tasks", json.Unmarshal, json.Marshal, m.listAssignedTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-assigned-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-created-tasks", json.Unmarshal, json.Marshal, m.listCreatedTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-created-tasks service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "create-task, get-task, update-task, patch-task, delete-task, search-tasks, list-assigned-tasks, list-created-tasks")
	return nil
}

func (m *TaskModule) Start(ctx context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}

	store, err := m.openStore(ctx)
	if err != nil {
		return err
	}
	m.store = store

	if m.cfg.CacheEnabled() {
		m.redis = redis.NewClient(&redis.Options{
			Addr:         m.cfg.RedisAddr,
			Password:     m.cfg.RedisPassword,
			PoolSize:     50,
			MinIdleConns: 5,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.shutdownStore()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		m.cache = NewCachedStore(store, m.redis, m.cfg.CachePrefix, m.cfg.CacheTTL, m.logger)
		m.store = m.cache
		m.logger.Info("Task cache enabled", "addr", m.cfg.RedisAddr, "prefix", m.cfg.CachePrefix, "ttl", m.cfg.CacheTTL)
	}

	var notifier Notifier
	if m.eventBus == nil {
		m.logger.Warn("eventBus not set, task events will not be published")
	} else {
		m.dispatcher = NewDispatcher(NewBusPublisher(m.eventBus), m.logger, m.cfg.FanoutPublishTimeout)
		notifier = m.dispatcher
	}

	m.service = NewService(m.store, NewUserLookup(m.userPort), notifier, m.logger)

	m.logger.Info("Module started", "store", m.cfg.StoreDriver, "depends_on", "user")
	return nil
}

func (m *TaskModule) Stop(ctx context.Context) error {
	if m.dispatcher != nil {
		if err := m.dispatcher.Close(ctx); err != nil {
			m.logger.Warn("Fan-out did not drain before shutdown", "error", err)
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("Error closing Redis connection", "error", err)
		}
	}
	m.shutdownStore()
	m.logger.Info("Module stopped")
	return nil
}

// Health reports the state of the task store, plus cache counters when caching is on.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	if p, ok := m.store.(domain.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("store ping failed: %v", err),
			}
		}
	}

	details := map[string]any{
		"store": m.cfg.StoreDriver,
	}
	if m.cache != nil {
		details["cache"] = m.cache.Stats()
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// Service exposes the lifecycle service once the module has started.
func (m *TaskModule) Service() *Service {
	return m.service
}

func (m *TaskModule) openStore(ctx context.Context) (domain.Store, error) {
	switch m.cfg.StoreDriver {
	case config.StoreMemory:
		m.closeStore = func() {}
		return NewMemoryStore(), nil

	case config.StoreKV:
		s, err := NewKVStore(ctx, m.cfg.NATSURL, m.cfg.KVBucket)
		if err != nil {
			return nil, err
		}
		m.closeStore = s.Close
		return s, nil

	case config.StorePostgres:
		s, err := NewPostgresStore(ctx, m.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		m.closeStore = s.Close
		return s, nil

	default:
		db, err := OpenSQLite(m.cfg.DBPath, m.cfg.DBDebug)
		if err != nil {
			return nil, err
		}
		s, err := NewGormStore(db)
		if err != nil {
			if sqlDB, derr := db.DB(); derr == nil {
				sqlDB.Close()
			}
			return nil, err
		}
		m.closeStore = func() {
			if err := s.Close(); err != nil {
				m.logger.Warn("Error closing task database", "error", err)
			}
		}
		return s, nil
	}
}

func (m *TaskModule) shutdownStore() {
	if m.closeStore != nil {
		m.closeStore()
		m.closeStore = nil
	}
}
