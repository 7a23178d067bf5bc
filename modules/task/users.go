package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/user"
)

// UserLookup resolves user references held by tasks.
type UserLookup interface {
	Resolve(ctx context.Context, userID string) (*userdomain.Summary, error)
}

type userLookup struct {
	port user.UserPort
}

// NewUserLookup adapts the user module port to UserLookup, translating a missing user
// into the task NotFound error.
func NewUserLookup(port user.UserPort) UserLookup {
	return &userLookup{port: port}
}

func (l *userLookup) Resolve(ctx context.Context, userID string) (*userdomain.Summary, error) {
	if userID == "" {
		return nil, domain.UserNotFound(userID)
	}
	u, err := l.port.GetUser(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, domain.UserNotFound(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	return u, nil
}
