package auth

import (
	"context"
	"encoding/json"
	"fmt"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Register(ctx context.Context, req *RegisterRequest) (*SessionResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*userdomain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*userdomain.Claims, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	if container == nil {
		panic("auth adapter requires non-nil ServiceContainer")
	}
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account and returns its first session.
func (a *AuthAdapter) Register(ctx context.Context, req *RegisterRequest) (*SessionResponse, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	if resp.Code != "" {
		return nil, errorForCode(resp.Code, resp.Error)
	}
	return &resp, nil
}

// Login authenticates and returns a session.
func (a *AuthAdapter) Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if resp.Code != "" {
		return nil, errorForCode(resp.Code, resp.Error)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*userdomain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("refresh-token request failed: %w", err)
	}
	if resp.Code != "" {
		return nil, errorForCode(resp.Code, resp.Error)
	}
	if resp.Tokens == nil {
		return nil, fmt.Errorf("refresh-token returned no tokens")
	}
	return resp.Tokens, nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*userdomain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %w", errorForCode(resp.Error, resp.Error))
	}

	return &userdomain.Claims{
		UserID:   resp.UserID,
		Username: resp.Username,
		Email:    resp.Email,
	}, nil
}
