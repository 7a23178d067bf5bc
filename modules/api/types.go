package api

import (
	"time"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/notification"
)

// TaskRequest is the body of create and full-update calls.
type TaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssignedTo  *string `json:"assignedTo"`
	Version     *int64  `json:"version"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User   *userdomain.Summary   `json:"user"`
	Tokens *userdomain.TokenPair `json:"tokens"`
}

// ActivityResponse lists recent task activity, newest first.
type ActivityResponse struct {
	Items []notification.Activity `json:"items"`
	Count int                     `json:"count"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Path      string            `json:"path,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
