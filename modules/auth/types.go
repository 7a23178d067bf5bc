package auth

import (
	"errors"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/user"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest represents a user login request. Login is a username or an email.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SessionResponse answers register and login.
type SessionResponse struct {
	User   *userdomain.Summary   `json:"user,omitempty"`
	Tokens *userdomain.TokenPair `json:"tokens,omitempty"`
	Code   string                `json:"code,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh response.
type RefreshResponse struct {
	Tokens *userdomain.TokenPair `json:"tokens,omitempty"`
	Code   string                `json:"code,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Error    string `json:"error,omitempty"`
}

// authErrors pairs each expected failure with its code in responses.
var authErrors = []struct {
	code string
	err  error
}{
	{"invalid_credentials", ErrInvalidCredentials},
	{"invalid_username", ErrInvalidUsername},
	{"invalid_email", ErrInvalidEmail},
	{"weak_password", ErrWeakPassword},
	{"password_too_long", ErrPasswordTooLong},
	{"invalid_token", ErrInvalidToken},
	{"token_expired", ErrExpiredToken},
	{"username_taken", user.ErrUsernameTaken},
	{"email_in_use", user.ErrEmailInUse},
}

// errorCode returns the response code for err, or "" when err is unexpected.
func errorCode(err error) string {
	for _, e := range authErrors {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ""
}

// errorForCode rebuilds the sentinel error for a response code.
func errorForCode(code, message string) error {
	for _, e := range authErrors {
		if e.code == code {
			return e.err
		}
	}
	return errors.New(message)
}
