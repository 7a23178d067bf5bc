package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/kanban-tasks/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/crypto/bcrypt"
)

// AuthModule provides authentication services on top of the user directory.
type AuthModule struct {
	jwtConfig JWTConfig
	logger    types.Logger
	userPort  user.UserPort
	service   *AuthService
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.DependentModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(jwtConfig JWTConfig, logger types.Logger) *AuthModule {
	return &AuthModule{
		jwtConfig: jwtConfig,
		logger:    logger.WithModule("auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Dependencies returns the modules this module depends on.
func (m *AuthModule) Dependencies() []string {
	return []string{"user"}
}

// SetDependencyServiceContainer receives the user module's services.
func (m *AuthModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "user" {
		m.userPort = user.NewUserAdapter(container)
	}
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}

	m.service = NewAuthService(
		m.userPort,
		NewPasswordHasher(bcrypt.DefaultCost),
		NewJWTManager(m.jwtConfig),
		m.logger,
	)

	m.logger.Info("Module started", "issuer", m.jwtConfig.Issuer, "access_ttl", m.jwtConfig.AccessTokenDuration)
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	// Register register service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"register",
		json.Unmarshal,
		json.Marshal,
		m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	// Register login service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"login",
		json.Unmarshal,
		json.Marshal,
		m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	// Register refresh-token service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"refresh-token",
		json.Unmarshal,
		json.Marshal,
		m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	// Register validate-token service
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"validate-token",
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	m.logger.Info("Registered services", "services", "register, login, refresh-token, validate-token")
	return nil
}

// handleRegister handles user registration.
func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Register(ctx, RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return sessionFailure(err)
	}
	return SessionResponse{User: &session.User, Tokens: &session.Tokens}, nil
}

// handleLogin handles user login.
func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Login(ctx, req.Login, req.Password)
	if err != nil {
		return sessionFailure(err)
	}
	return SessionResponse{User: &session.User, Tokens: &session.Tokens}, nil
}

// handleRefresh handles token refresh.
func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		if code := errorCode(err); code != "" {
			return RefreshResponse{Code: code, Error: err.Error()}, nil
		}
		return RefreshResponse{}, err
	}
	return RefreshResponse{Tokens: tokens}, nil
}

// handleValidateToken handles token validation.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		code := errorCode(err)
		if code == "" {
			code = "invalid_token"
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: code,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// sessionFailure reports expected failures in the response and returns anything else
// as a service error.
func sessionFailure(err error) (SessionResponse, error) {
	if code := errorCode(err); code != "" {
		return SessionResponse{Code: code, Error: err.Error()}, nil
	}
	return SessionResponse{}, err
}
