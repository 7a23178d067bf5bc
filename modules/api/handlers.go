package api

import (
	"encoding/json"
	"strings"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/example/kanban-tasks/modules/notification"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const defaultActivityPage = 50

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth     auth.AuthPort
	tasks    task.TaskPort
	activity *notification.ActivityLog
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, taskPort task.TaskPort, activity *notification.ActivityLog, logger types.Logger) *Handlers {
	return &Handlers{
		auth:     authPort,
		tasks:    taskPort,
		activity: activity,
		logger:   logger,
	}
}

// Register handles account registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body", nil)
	}

	resp, err := h.auth.Register(c.UserContext(), &req)
	if err != nil {
		return writeAuthError(c, h.logger, "register", err)
	}
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{User: resp.User, Tokens: resp.Tokens})
}

// Login handles username or email login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body", nil)
	}
	if req.Login == "" || req.Password == "" {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Login and password are required", nil)
	}

	resp, err := h.auth.Login(c.UserContext(), &req)
	if err != nil {
		return writeAuthError(c, h.logger, "login", err)
	}
	return c.JSON(SessionResponse{User: resp.User, Tokens: resp.Tokens})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "refresh_token is required", nil)
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeAuthError(c, h.logger, "refresh", err)
	}
	return c.JSON(tokens)
}

// SearchTasks filters, sorts and pages tasks from query parameters.
func (h *Handlers) SearchTasks(c *fiber.Ctx) error {
	page, err := h.tasks.SearchTasks(c.UserContext(), &task.SearchTasksRequest{
		Title:      c.Query("title"),
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assignedTo"),
		CreatedBy:  c.Query("createdBy"),
		Page:       c.QueryInt("page", 0),
		Size:       c.QueryInt("size", 0),
		SortBy:     c.Query("sortBy"),
		SortDir:    c.Query("sortDir"),
	})
	if err != nil {
		return writeTaskError(c, h.logger, "search", err)
	}
	return c.JSON(page)
}

// CreateTask creates a task owned by the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body", nil)
	}

	create := &task.CreateTaskRequest{
		CallerID:   callerID(c),
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
	}
	if req.Title != nil {
		create.Title = *req.Title
	}
	if req.Description != nil {
		create.Description = *req.Description
	}

	t, err := h.tasks.CreateTask(c.UserContext(), create)
	if err != nil {
		return writeTaskError(c, h.logger, "create", err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GetTask returns a single task.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	t, err := h.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeTaskError(c, h.logger, "get", err)
	}
	return c.JSON(t)
}

// UpdateTask replaces the mutable fields of a task. An omitted assignee clears it.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body", nil)
	}

	version, err := expectedVersion(c, req.Version)
	if err != nil {
		return writeTaskError(c, h.logger, "update", err)
	}

	t, err := h.tasks.UpdateTask(c.UserContext(), &task.UpdateTaskRequest{
		CallerID:        callerID(c),
		TaskID:          c.Params("id"),
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		Priority:        req.Priority,
		AssignedTo:      req.AssignedTo,
		ExpectedVersion: version,
	})
	if err != nil {
		return writeTaskError(c, h.logger, "update", err)
	}
	return c.JSON(t)
}

// PatchTask applies a JSON merge patch. Fields absent from the body are left alone.
func (h *Handlers) PatchTask(c *fiber.Ctx) error {
	if !strings.Contains(strings.ToLower(c.Get(fiber.HeaderContentType)), "json") {
		return writeError(c, fiber.StatusUnsupportedMediaType, "unsupported_media_type",
			"Use application/json or application/merge-patch+json", nil)
	}

	var patch domain.Patch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body", nil)
	}

	if patch.Version.IsAbsent() {
		version, err := expectedVersion(c, nil)
		if err != nil {
			return writeTaskError(c, h.logger, "patch", err)
		}
		if version != nil {
			patch.Version = domain.Some(*version)
		}
	}

	t, err := h.tasks.PatchTask(c.UserContext(), &task.PatchTaskRequest{
		CallerID: callerID(c),
		TaskID:   c.Params("id"),
		Patch:    patch,
	})
	if err != nil {
		return writeTaskError(c, h.logger, "patch", err)
	}
	return c.JSON(t)
}

// DeleteTask removes a task. Tasks in progress cannot be deleted.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	version, err := expectedVersion(c, nil)
	if err != nil {
		return writeTaskError(c, h.logger, "delete", err)
	}

	if err := h.tasks.DeleteTask(c.UserContext(), &task.DeleteTaskRequest{
		CallerID:        callerID(c),
		TaskID:          c.Params("id"),
		ExpectedVersion: version,
	}); err != nil {
		return writeTaskError(c, h.logger, "delete", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAssignedTasks pages the tasks assigned to a user.
func (h *Handlers) ListAssignedTasks(c *fiber.Ctx) error {
	page, err := h.tasks.ListAssignedTasks(c.UserContext(), userTasksRequest(c))
	if err != nil {
		return writeTaskError(c, h.logger, "list assigned", err)
	}
	return c.JSON(page)
}

// ListCreatedTasks pages the tasks created by a user.
func (h *Handlers) ListCreatedTasks(c *fiber.Ctx) error {
	page, err := h.tasks.ListCreatedTasks(c.UserContext(), userTasksRequest(c))
	if err != nil {
		return writeTaskError(c, h.logger, "list created", err)
	}
	return c.JSON(page)
}

func userTasksRequest(c *fiber.Ctx) *task.ListUserTasksRequest {
	return &task.ListUserTasksRequest{
		UserID:  c.Params("userId"),
		Page:    c.QueryInt("page", 0),
		Size:    c.QueryInt("size", 0),
		SortBy:  c.Query("sortBy"),
		SortDir: c.Query("sortDir"),
	}
}

// RecentActivity returns the latest task events, newest first.
func (h *Handlers) RecentActivity(c *fiber.Ctx) error {
	if h.activity == nil {
		return c.JSON(ActivityResponse{Items: []notification.Activity{}})
	}
	items := h.activity.Recent(c.QueryInt("limit", defaultActivityPage))
	return c.JSON(ActivityResponse{Items: items, Count: len(items)})
}
