package task

import (
	"context"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono"
)

// Request-reply handlers. Classified domain errors are returned inside the response so
// the caller can rebuild them; anything else is returned as a service error.

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Create(ctx, req.CallerID, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
	})
	return taskReply(t, err)
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Get(ctx, req.TaskID)
	return taskReply(t, err)
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Update(ctx, req.CallerID, req.TaskID, UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		Priority:        req.Priority,
		AssignedTo:      req.AssignedTo,
		ExpectedVersion: req.ExpectedVersion,
	})
	return taskReply(t, err)
}

func (m *TaskModule) patchTask(ctx context.Context, req PatchTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Patch(ctx, req.CallerID, req.TaskID, req.Patch)
	return taskReply(t, err)
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	err := m.service.Delete(ctx, req.CallerID, req.TaskID, req.ExpectedVersion)
	if err != nil {
		if se := NewServiceError(err); se != nil {
			return DeleteTaskResponse{Deleted: false, Error: se}, nil
		}
		return DeleteTaskResponse{}, err
	}
	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) searchTasks(ctx context.Context, req SearchTasksRequest, _ *mono.Msg) (TaskPageResponse, error) {
	page, err := m.service.Search(ctx, SearchInput{
		Title:      req.Title,
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
		CreatedBy:  req.CreatedBy,
		Page:       req.Page,
		Size:       req.Size,
		SortBy:     req.SortBy,
		SortDir:    req.SortDir,
	})
	return pageReply(page, err)
}

func (m *TaskModule) listAssignedTasks(ctx context.Context, req ListUserTasksRequest, _ *mono.Msg) (TaskPageResponse, error) {
	page, err := m.service.ListAssignedTo(ctx, req.UserID,
		domain.NewPageRequest(req.Page, req.Size), domain.NormalizeSort(req.SortBy, req.SortDir))
	return pageReply(page, err)
}

func (m *TaskModule) listCreatedTasks(ctx context.Context, req ListUserTasksRequest, _ *mono.Msg) (TaskPageResponse, error) {
	page, err := m.service.ListCreatedBy(ctx, req.UserID,
		domain.NewPageRequest(req.Page, req.Size), domain.NormalizeSort(req.SortBy, req.SortDir))
	return pageReply(page, err)
}

func taskReply(t *domain.Task, err error) (TaskResponse, error) {
	if err != nil {
		if se := NewServiceError(err); se != nil {
			return TaskResponse{Error: se}, nil
		}
		return TaskResponse{}, err
	}
	return TaskResponse{Task: t}, nil
}

func pageReply(page domain.Page[*domain.Task], err error) (TaskPageResponse, error) {
	if err != nil {
		if se := NewServiceError(err); se != nil {
			return TaskPageResponse{Error: se}, nil
		}
		return TaskPageResponse{}, err
	}
	return TaskPageResponse{Page: page}, nil
}
