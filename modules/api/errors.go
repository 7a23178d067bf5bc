package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/modules/auth"
	"github.com/example/kanban-tasks/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const (
	conflictMessage = "The resource was updated by another user. Please refresh and try again."
	internalMessage = "An unexpected error occurred"
)

// writeError sends the common error body.
func writeError(c *fiber.Ctx, status int, code, message string, fields map[string]string) error {
	return c.Status(status).JSON(ErrorResponse{
		Status:    status,
		Error:     code,
		Message:   message,
		Errors:    fields,
		Path:      c.Path(),
		Timestamp: time.Now().UTC(),
	})
}

// writeTaskError maps the task error taxonomy onto HTTP statuses. Unclassified
// errors are logged and answered with a generic 500.
func writeTaskError(c *fiber.Ctx, logger types.Logger, op string, err error) error {
	switch domain.Kind(err) {
	case "not_found":
		return writeError(c, fiber.StatusNotFound, "not_found", err.Error(), nil)
	case "version_conflict":
		return writeError(c, fiber.StatusConflict, "version_conflict", conflictMessage, nil)
	case "policy_violation":
		return writeError(c, fiber.StatusUnprocessableEntity, "policy_violation", err.Error(), nil)
	case "illegal_operation":
		return writeError(c, fiber.StatusUnprocessableEntity, "illegal_operation", err.Error(), nil)
	case "bad_input":
		var verr *domain.ValidationError
		var fields map[string]string
		if errors.As(err, &verr) {
			fields = verr.Fields
		}
		return writeError(c, fiber.StatusBadRequest, "validation_failed", "Validation failed", fields)
	}

	logger.Error("Task request failed", "operation", op, "path", c.Path(), "error", err)
	return writeError(c, fiber.StatusInternalServerError, "internal_error", internalMessage, nil)
}

// writeAuthError maps identity failures onto HTTP statuses.
func writeAuthError(c *fiber.Ctx, logger types.Logger, op string, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong):
		return writeError(c, fiber.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return writeError(c, fiber.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return writeError(c, fiber.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, user.ErrUsernameTaken), errors.Is(err, user.ErrEmailInUse):
		return writeError(c, fiber.StatusConflict, "conflict", err.Error(), nil)
	}

	logger.Error("Auth request failed", "operation", op, "error", err)
	return writeError(c, fiber.StatusInternalServerError, "internal_error", internalMessage, nil)
}

// expectedVersion returns the optimistic-lock version from the body, the If-Match
// header or the version query parameter, in that order. It is nil when none is sent.
func expectedVersion(c *fiber.Ctx, fromBody *int64) (*int64, error) {
	if fromBody != nil {
		return fromBody, nil
	}

	raw := c.Get(fiber.HeaderIfMatch)
	if raw == "" {
		raw = c.Query("version")
	}
	if raw == "" {
		return nil, nil
	}

	raw = strings.TrimPrefix(strings.TrimSpace(raw), "W/")
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil || v < 0 {
		return nil, &domain.ValidationError{Fields: map[string]string{"version": "must be a non-negative integer"}}
	}
	return &v, nil
}
