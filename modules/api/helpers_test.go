package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/kanban-tasks/config"
	domain "github.com/example/kanban-tasks/domain/task"
	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/example/kanban-tasks/modules/notification"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const validToken = "valid-token"

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	registerFunc      func(ctx context.Context, req *auth.RegisterRequest) (*auth.SessionResponse, error)
	loginFunc         func(ctx context.Context, req *auth.LoginRequest) (*auth.SessionResponse, error)
	refreshFunc       func(ctx context.Context, refreshToken string) (*userdomain.TokenPair, error)
	validateTokenFunc func(ctx context.Context, token string) (*userdomain.Claims, error)
}

func (m *mockAuthPort) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.SessionResponse, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Login(ctx context.Context, req *auth.LoginRequest) (*auth.SessionResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Refresh(ctx context.Context, refreshToken string) (*userdomain.TokenPair, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return nil, errors.New("not implemented")
}

// ValidateToken accepts validToken as user-1 unless validateTokenFunc is set.
func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*userdomain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	if token == validToken {
		return &userdomain.Claims{UserID: "user-1", Username: "alice"}, nil
	}
	return nil, auth.ErrInvalidToken
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	createFunc       func(ctx context.Context, req *task.CreateTaskRequest) (*domain.Task, error)
	getFunc          func(ctx context.Context, taskID string) (*domain.Task, error)
	updateFunc       func(ctx context.Context, req *task.UpdateTaskRequest) (*domain.Task, error)
	patchFunc        func(ctx context.Context, req *task.PatchTaskRequest) (*domain.Task, error)
	deleteFunc       func(ctx context.Context, req *task.DeleteTaskRequest) error
	searchFunc       func(ctx context.Context, req *task.SearchTasksRequest) (*domain.Page[*domain.Task], error)
	listAssignedFunc func(ctx context.Context, req *task.ListUserTasksRequest) (*domain.Page[*domain.Task], error)
	listCreatedFunc  func(ctx context.Context, req *task.ListUserTasksRequest) (*domain.Page[*domain.Task], error)
}

func (m *mockTaskPort) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*domain.Task, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, taskID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, req *task.UpdateTaskRequest) (*domain.Task, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) PatchTask(ctx context.Context, req *task.PatchTaskRequest) (*domain.Task, error) {
	if m.patchFunc != nil {
		return m.patchFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, req *task.DeleteTaskRequest) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, req)
	}
	return errors.New("not implemented")
}

func (m *mockTaskPort) SearchTasks(ctx context.Context, req *task.SearchTasksRequest) (*domain.Page[*domain.Task], error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) ListAssignedTasks(ctx context.Context, req *task.ListUserTasksRequest) (*domain.Page[*domain.Task], error) {
	if m.listAssignedFunc != nil {
		return m.listAssignedFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) ListCreatedTasks(ctx context.Context, req *task.ListUserTasksRequest) (*domain.Page[*domain.Task], error) {
	if m.listCreatedFunc != nil {
		return m.listCreatedFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func testConfig() config.Config {
	return config.Config{
		HTTPPort:           3000,
		RateLimitMax:       100,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: "*",
	}
}

// newTestApp builds the full middleware and route stack around the mock ports.
func newTestApp(cfg config.Config, authPort auth.AuthPort, taskPort task.TaskPort, hub *notification.Hub, activity *notification.ActivityLog) *fiber.App {
	m := NewModule(cfg, hub, activity, &mockLogger{})
	m.authPort = authPort
	m.taskPort = taskPort
	return m.newApp()
}

func sampleTask(id string, version int64) *domain.Task {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Task{
		ID:        id,
		Title:     "Write docs",
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMed,
		CreatedBy: "user-1",
		CreatedAt: now,
		UpdatedAt: now,
		Version:   version,
	}
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+validToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, body
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to decode error body %q: %v", body, err)
	}
	return out
}
