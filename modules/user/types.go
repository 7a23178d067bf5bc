package user

import (
	domain "github.com/example/kanban-tasks/domain/user"
)

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	User  *domain.Summary `json:"user,omitempty"`
	Found bool            `json:"found"`
}

// ValidateUserRequest represents a validate user request.
type ValidateUserRequest struct {
	UserID string `json:"user_id"`
}

// ValidateUserResponse represents a validate user response.
type ValidateUserResponse struct {
	Valid bool `json:"valid"`
}

// CreateUserRequest carries an already-hashed password.
type CreateUserRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"password_hash"`
}

// CreateUserResponse represents a create user response.
// Error is one of the Code* values when the user could not be created.
type CreateUserResponse struct {
	User  *domain.Summary `json:"user,omitempty"`
	Error string          `json:"error,omitempty"`
}

// GetCredentialsRequest looks a user up by username or email.
type GetCredentialsRequest struct {
	Login string `json:"login"`
}

// GetCredentialsResponse represents a get credentials response.
type GetCredentialsResponse struct {
	Credentials *domain.Credentials `json:"credentials,omitempty"`
	Found       bool                `json:"found"`
}

// Error codes carried in CreateUserResponse.Error.
const (
	CodeUsernameTaken = "username_taken"
	CodeEmailInUse    = "email_in_use"
)
