package main

import (
	"context"
	"log"
	"os"

	"github.com/example/kanban-tasks/config"
	"github.com/example/kanban-tasks/modules/api"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/example/kanban-tasks/modules/notification"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/example/kanban-tasks/modules/user"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Kanban Tasks - Collaborative Task Board ===")

	cfg := config.Load()

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	notificationModule := notification.NewModule(notification.DefaultActivityLimit, logger)

	// Order: independent modules first, then modules with dependencies
	// - user: user directory (no dependencies)
	// - auth: identity (depends on user)
	// - notification: event consumer (subscribes to task events)
	// - task: core domain (depends on user, emits events)
	// - api: driving adapter (depends on auth and task)
	app.Register(user.NewModule(cfg.UsersDBPath, logger))
	app.Register(auth.NewModule(auth.JWTConfig{
		SecretKey:            cfg.JWTSecretKey,
		AccessTokenDuration:  cfg.JWTAccessTTL,
		RefreshTokenDuration: cfg.JWTRefreshTTL,
		Issuer:               cfg.JWTIssuer,
	}, logger))
	app.Register(notificationModule)
	app.Register(task.NewModule(cfg, logger))
	app.Register(api.NewModule(cfg, notificationModule.Hub(), notificationModule.Activity(), logger))

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Task store: %s (cache: %t)", cfg.StoreDriver, cfg.CacheEnabled())
	log.Printf("Rate limit: %d requests per %s per client", cfg.RateLimitMax, cfg.RateLimitWindow)
	log.Println("")
	log.Println("Demo Users Available (password: password123):")
	log.Println("  - user-1: alice")
	log.Println("  - user-2: bob")
	log.Println("  - user-3: charlie")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTPPort)
	log.Println("  POST   /api/v1/auth/register          - Create an account")
	log.Println("  POST   /api/v1/auth/login             - Obtain tokens")
	log.Println("  POST   /api/v1/auth/refresh           - Refresh tokens")
	log.Println("  GET    /api/v1/tasks                  - Search tasks")
	log.Println("  POST   /api/v1/tasks                  - Create a task")
	log.Println("  GET    /api/v1/tasks/:id              - Get a task")
	log.Println("  PUT    /api/v1/tasks/:id              - Replace a task")
	log.Println("  PATCH  /api/v1/tasks/:id              - Merge-patch a task")
	log.Println("  DELETE /api/v1/tasks/:id              - Delete a task")
	log.Println("  GET    /api/v1/tasks/assigned/:userId - Tasks assigned to a user")
	log.Println("  GET    /api/v1/tasks/created/:userId  - Tasks created by a user")
	log.Println("  GET    /api/v1/activity               - Recent task activity")
	log.Println("  POST   /api/v1/graphql                - Task queries and mutations (GraphQL)")
	log.Println("  GET    /ws?task_id=                   - Live task events (WebSocket)")
	log.Println("  GET    /health                        - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
