package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/kanban-tasks/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the password of every seeded demo user.
const DemoPassword = "password123"

var demoUsers = []domain.User{
	{ID: "user-1", Username: "alice", Email: "alice@example.com", Name: "Alice Johnson"},
	{ID: "user-2", Username: "bob", Email: "bob@example.com", Name: "Bob Smith"},
	{ID: "user-3", Username: "charlie", Email: "charlie@example.com", Name: "Charlie Brown"},
}

// UserModule provides the user directory.
type UserModule struct {
	dbPath string
	logger types.Logger
	repo   *UserRepository
}

// Compile-time interface checks.
var _ mono.Module = (*UserModule)(nil)
var _ mono.ServiceProviderModule = (*UserModule)(nil)
var _ mono.HealthCheckableModule = (*UserModule)(nil)

// NewModule creates a new UserModule backed by the SQLite file at dbPath.
func NewModule(dbPath string, logger types.Logger) *UserModule {
	return &UserModule{
		dbPath: dbPath,
		logger: logger.WithModule("user"),
	}
}

// Name returns the module name.
func (m *UserModule) Name() string {
	return "user"
}

// RegisterServices registers request-reply services in the service container.
func (m *UserModule) RegisterServices(container mono.ServiceContainer) error {
	// Register get-user service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-user",
		json.Unmarshal,
		json.Marshal,
		m.getUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	// Register validate-user service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"validate-user",
		json.Unmarshal,
		json.Marshal,
		m.validateUser,
	); err != nil {
		return fmt.Errorf("failed to register validate-user service: %w", err)
	}

	// Register create-user service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"create-user",
		json.Unmarshal,
		json.Marshal,
		m.createUser,
	); err != nil {
		return fmt.Errorf("failed to register create-user service: %w", err)
	}

	// Register get-credentials service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-credentials",
		json.Unmarshal,
		json.Marshal,
		m.getCredentials,
	); err != nil {
		return fmt.Errorf("failed to register get-credentials service: %w", err)
	}

	m.logger.Info("Registered services", "services", "get-user, validate-user, create-user, get-credentials")
	return nil
}

// getUser handles the get-user service request.
func (m *UserModule) getUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.repo.FindByID(ctx, req.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return GetUserResponse{Found: false}, nil
	}
	if err != nil {
		return GetUserResponse{}, err
	}

	summary := user.ToSummary()
	return GetUserResponse{
		User:  &summary,
		Found: true,
	}, nil
}

// validateUser handles the validate-user service request.
func (m *UserModule) validateUser(ctx context.Context, req ValidateUserRequest, _ *mono.Msg) (ValidateUserResponse, error) {
	exists, err := m.repo.Exists(ctx, req.UserID)
	if err != nil {
		return ValidateUserResponse{}, err
	}
	return ValidateUserResponse{Valid: exists}, nil
}

// createUser handles the create-user service request.
func (m *UserModule) createUser(ctx context.Context, req CreateUserRequest, _ *mono.Msg) (CreateUserResponse, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: req.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := m.repo.Create(ctx, user)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return CreateUserResponse{Error: CodeUsernameTaken}, nil
	case errors.Is(err, ErrEmailInUse):
		return CreateUserResponse{Error: CodeEmailInUse}, nil
	case err != nil:
		m.logger.WithError(err).Error("Failed to create user", "username", req.Username)
		return CreateUserResponse{}, err
	}

	m.logger.Info("User created", "user_id", user.ID, "username", user.Username)
	summary := user.ToSummary()
	return CreateUserResponse{User: &summary}, nil
}

// getCredentials handles the get-credentials service request.
func (m *UserModule) getCredentials(ctx context.Context, req GetCredentialsRequest, _ *mono.Msg) (GetCredentialsResponse, error) {
	user, err := m.repo.FindByLogin(ctx, req.Login)
	if errors.Is(err, ErrUserNotFound) {
		return GetCredentialsResponse{Found: false}, nil
	}
	if err != nil {
		return GetCredentialsResponse{}, err
	}

	return GetCredentialsResponse{
		Credentials: &domain.Credentials{
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			PasswordHash: user.PasswordHash,
		},
		Found: true,
	}, nil
}

// Start opens the database and seeds demo users into an empty directory.
func (m *UserModule) Start(ctx context.Context) error {
	db, err := OpenDatabase(m.dbPath)
	if err != nil {
		return err
	}
	m.repo = NewUserRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return err
	}
	if err := m.seedDemoUsers(ctx); err != nil {
		return err
	}

	m.logger.Info("Module started", "database", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *UserModule) Stop(_ context.Context) error {
	if m.repo != nil {
		if err := m.repo.Close(); err != nil {
			m.logger.Warn("Error closing user database", "error", err)
		}
	}
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *UserModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

func (m *UserModule) seedDemoUsers(ctx context.Context) error {
	count, err := m.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	now := time.Now().UTC()
	for _, u := range demoUsers {
		u.PasswordHash = string(hash)
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := m.repo.Create(ctx, &u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
	}
	m.logger.Info("Seeded demo users", "count", len(demoUsers))
	return nil
}
