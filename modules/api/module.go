package api

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/example/kanban-tasks/config"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/example/kanban-tasks/modules/notification"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis/v3"
)

const redisDialTimeout = 2 * time.Second

// APIModule is the HTTP and WebSocket driving adapter.
type APIModule struct {
	cfg      config.Config
	app      *fiber.App
	authPort auth.AuthPort
	taskPort task.TaskPort
	hub      *notification.Hub
	activity *notification.ActivityLog
	storage  fiber.Storage
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule. hub and activity may be nil, which disables
// the /ws endpoint and leaves the activity feed empty.
func NewModule(cfg config.Config, hub *notification.Hub, activity *notification.ActivityLog, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:      cfg,
		hub:      hub,
		activity: activity,
		logger:   logger.WithModule("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "task":
		m.taskPort = task.NewTaskAdapter(container)
	}
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskPort == nil {
		return fmt.Errorf("task dependency not set")
	}

	if m.cfg.RateLimitRedis {
		storage, err := openLimiterStorage(m.cfg)
		if err != nil {
			return err
		}
		m.storage = storage
	}

	m.app = m.newApp()

	addr := fmt.Sprintf(":%d", m.cfg.HTTPPort)
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr, "rate_limit", m.cfg.RateLimitMax, "limiter_storage", m.limiterStorageName())
	return nil
}

// Stop shuts down the HTTP server and releases the limiter storage.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			m.logger.Warn("Failed to close limiter storage", "error", err)
		}
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"port":            m.cfg.HTTPPort,
		"limiter_storage": m.limiterStorageName(),
	}
	if m.hub != nil {
		details["ws_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

func (m *APIModule) limiterStorageName() string {
	if m.cfg.RateLimitRedis {
		return "redis"
	}
	return "memory"
}

// newApp assembles middleware and routes without binding a port.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Kanban Tasks",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization,If-Match",
	}))
	app.Use(RateLimiter(limiter.Config{
		Max:        m.cfg.RateLimitMax,
		Expiration: m.cfg.RateLimitWindow,
	}, m.storage))

	m.setupRoutes(app)
	return app
}

// setupRoutes configures all API routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	handlers := NewHandlers(m.authPort, m.taskPort, m.activity, m.logger)
	gql, err := NewGraphQLHandler(m.taskPort, m.logger)
	if err != nil {
		panic(err)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	if m.hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(m.hub.Serve))
	}

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	protected := v1.Group("", AuthMiddleware(m.authPort))
	protected.Get("/activity", handlers.RecentActivity)
	protected.Post("/graphql", gql.Serve)

	tasks := protected.Group("/tasks")
	tasks.Get("/", handlers.SearchTasks)
	tasks.Post("/", handlers.CreateTask)
	tasks.Get("/assigned/:userId", handlers.ListAssignedTasks)
	tasks.Get("/created/:userId", handlers.ListCreatedTasks)
	tasks.Get("/:id", handlers.GetTask)
	tasks.Put("/:id", handlers.UpdateTask)
	tasks.Patch("/:id", handlers.PatchTask)
	tasks.Delete("/:id", handlers.DeleteTask)
}

// errorHandler answers routing and framework errors with the common error body.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := internalMessage

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
		return writeError(c, code, "server_error", message, nil)
	}
	return writeError(c, code, "request_error", message, nil)
}

// openLimiterStorage connects the shared limiter storage. The storage constructor
// panics on an unreachable server, so the address is dialed first.
func openLimiterStorage(cfg config.Config) (fiber.Storage, error) {
	host, port := cfg.RedisHostPort()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), redisDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("limiter storage unreachable at %s: %w", cfg.RedisAddr, err)
	}
	_ = conn.Close()

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: cfg.RedisPassword,
		PoolSize: 50,
	}), nil
}
