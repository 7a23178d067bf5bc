package task

import (
	"context"

	domain "github.com/example/kanban-tasks/domain/task"
)

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	CallerID    string  `json:"caller_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// UpdateTaskRequest is the request for a full update.
type UpdateTaskRequest struct {
	CallerID        string  `json:"caller_id"`
	TaskID          string  `json:"task_id"`
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Status          *string `json:"status,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	AssignedTo      *string `json:"assigned_to,omitempty"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

// PatchTaskRequest is the request for a partial update.
type PatchTaskRequest struct {
	CallerID string       `json:"caller_id"`
	TaskID   string       `json:"task_id"`
	Patch    domain.Patch `json:"patch"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	CallerID        string `json:"caller_id"`
	TaskID          string `json:"task_id"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// SearchTasksRequest is the request for searching tasks.
type SearchTasksRequest struct {
	Title      string `json:"title,omitempty"`
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	SortBy     string `json:"sort_by,omitempty"`
	SortDir    string `json:"sort_dir,omitempty"`
}

// ListUserTasksRequest is the request for the tasks assigned to or created by a user.
type ListUserTasksRequest struct {
	UserID  string `json:"user_id"`
	Page    int    `json:"page"`
	Size    int    `json:"size"`
	SortBy  string `json:"sort_by,omitempty"`
	SortDir string `json:"sort_dir,omitempty"`
}

// TaskResponse is the response for operations returning a single task.
type TaskResponse struct {
	Task  *domain.Task  `json:"task,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	Deleted bool          `json:"deleted"`
	Error   *ServiceError `json:"error,omitempty"`
}

// TaskPageResponse is the response for paged task queries.
type TaskPageResponse struct {
	Page  domain.Page[*domain.Task] `json:"page"`
	Error *ServiceError             `json:"error,omitempty"`
}

// TaskPort defines the task operations available to driving adapters such as the HTTP API.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*domain.Task, error)
	PatchTask(ctx context.Context, req *PatchTaskRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, req *DeleteTaskRequest) error
	SearchTasks(ctx context.Context, req *SearchTasksRequest) (*domain.Page[*domain.Task], error)
	ListAssignedTasks(ctx context.Context, req *ListUserTasksRequest) (*domain.Page[*domain.Task], error)
	ListCreatedTasks(ctx context.Context, req *ListUserTasksRequest) (*domain.Page[*domain.Task], error)
}
