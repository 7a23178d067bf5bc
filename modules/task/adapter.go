package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
// Domain errors carried in a response are rebuilt so callers can use errors.Is.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// CreateTask creates a new task via the create-task service.
func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error) {
	return callTask(ctx, a.container, "create-task", req)
}

// GetTask retrieves a task by ID via the get-task service.
func (a *taskAdapter) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return callTask(ctx, a.container, "get-task", &GetTaskRequest{TaskID: taskID})
}

// UpdateTask replaces a task via the update-task service.
func (a *taskAdapter) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error) {
	return callTask(ctx, a.container, "update-task", req)
}

// PatchTask applies a partial update via the patch-task service.
func (a *taskAdapter) PatchTask(ctx context.Context, req *PatchTaskRequest) (*domain.Task, error) {
	return callTask(ctx, a.container, "patch-task", req)
}

// DeleteTask deletes a task via the delete-task service.
func (a *taskAdapter) DeleteTask(ctx context.Context, req *DeleteTaskRequest) error {
	var resp DeleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"delete-task",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return fmt.Errorf("delete-task service call failed: %w", err)
	}
	if resp.Error != nil {
		return resp.Error.Err()
	}
	if !resp.Deleted {
		return fmt.Errorf("task not deleted: %s", req.TaskID)
	}
	return nil
}

// SearchTasks runs a filtered query via the search-tasks service.
func (a *taskAdapter) SearchTasks(ctx context.Context, req *SearchTasksRequest) (*domain.Page[*domain.Task], error) {
	return callPage(ctx, a.container, "search-tasks", req)
}

// ListAssignedTasks lists the tasks assigned to a user via the list-assigned-tasks service.
func (a *taskAdapter) ListAssignedTasks(ctx context.Context, req *ListUserTasksRequest) (*domain.Page[*domain.Task], error) {
	return callPage(ctx, a.container, "list-assigned-tasks", req)
}

// ListCreatedTasks lists the tasks created by a user via the list-created-tasks service.
func (a *taskAdapter) ListCreatedTasks(ctx context.Context, req *ListUserTasksRequest) (*domain.Page[*domain.Task], error) {
	return callPage(ctx, a.container, "list-created-tasks", req)
}

func callTask[Req any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*domain.Task, error) {
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", service, err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Task == nil {
		return nil, fmt.Errorf("%s service returned no task", service)
	}
	return resp.Task, nil
}

func callPage[Req any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*domain.Page[*domain.Task], error) {
	var resp TaskPageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", service, err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Page.Items == nil {
		resp.Page.Items = []*domain.Task{}
	}
	return &resp.Page, nil
}
