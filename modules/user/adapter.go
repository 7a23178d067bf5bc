package user

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// UserPort defines the interface for user operations (used by other modules).
type UserPort interface {
	GetUser(ctx context.Context, userID string) (*domain.Summary, error)
	ValidateUser(ctx context.Context, userID string) (bool, error)
	CreateUser(ctx context.Context, req *CreateUserRequest) (*domain.Summary, error)
	GetCredentials(ctx context.Context, login string) (*domain.Credentials, error)
}

// userAdapter wraps ServiceContainer for type-safe cross-module communication.
type userAdapter struct {
	container mono.ServiceContainer
}

// NewUserAdapter creates a new adapter for user services.
// container is the ServiceContainer from the user module received via SetDependencyServiceContainer.
func NewUserAdapter(container mono.ServiceContainer) UserPort {
	if container == nil {
		panic("user adapter requires non-nil ServiceContainer")
	}
	return &userAdapter{container: container}
}

// GetUser retrieves user information by ID via the get-user service.
func (a *userAdapter) GetUser(ctx context.Context, userID string) (*domain.Summary, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-user service call failed: %w", err)
	}

	if !resp.Found || resp.User == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return resp.User, nil
}

// ValidateUser checks if a user exists via the validate-user service.
func (a *userAdapter) ValidateUser(ctx context.Context, userID string) (bool, error) {
	req := ValidateUserRequest{UserID: userID}
	var resp ValidateUserResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("validate-user service call failed: %w", err)
	}

	return resp.Valid, nil
}

// CreateUser stores a new user via the create-user service.
func (a *userAdapter) CreateUser(ctx context.Context, req *CreateUserRequest) (*domain.Summary, error) {
	var resp CreateUserResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create-user",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("create-user service call failed: %w", err)
	}

	switch resp.Error {
	case "":
	case CodeUsernameTaken:
		return nil, ErrUsernameTaken
	case CodeEmailInUse:
		return nil, ErrEmailInUse
	default:
		return nil, fmt.Errorf("create-user failed: %s", resp.Error)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("create-user service returned no user")
	}
	return resp.User, nil
}

// GetCredentials looks up login material via the get-credentials service.
func (a *userAdapter) GetCredentials(ctx context.Context, login string) (*domain.Credentials, error) {
	req := GetCredentialsRequest{Login: login}
	var resp GetCredentialsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-credentials",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-credentials service call failed: %w", err)
	}

	if !resp.Found || resp.Credentials == nil {
		return nil, ErrUserNotFound
	}
	return resp.Credentials, nil
}
