package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/user"
	"github.com/go-monolith/mono/pkg/types"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username has the wrong shape.
	ErrInvalidUsername = errors.New("username must be 3 to 50 characters without spaces")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// RegisterInput carries a new account's details.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
}

// Session is the result of a successful register or login.
type Session struct {
	User   userdomain.Summary
	Tokens userdomain.TokenPair
}

// AuthService handles authentication business logic. Accounts live in the user module.
type AuthService struct {
	users  user.UserPort
	hasher *PasswordHasher
	jwt    *JWTManager
	logger types.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users user.UserPort, hasher *PasswordHasher, jwt *JWTManager, logger types.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		jwt:    jwt,
		logger: logger,
	}
}

// Register validates in, creates the account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	summary, err := s.users.CreateUser(ctx, &user.CreateUserRequest{
		Username:     username,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) || errors.Is(err, user.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.generateTokenPair(summary.ID, summary.Username, summary.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", "user_id", summary.ID, "username", summary.Username)
	return &Session{User: *summary, Tokens: *tokens}, nil
}

// Login authenticates by username or email and returns tokens.
func (s *AuthService) Login(ctx context.Context, login, password string) (*Session, error) {
	creds, err := s.users.GetCredentials(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, creds.PasswordHash) {
		s.logger.Warn("Failed login attempt", "login", login)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokenPair(creds.UserID, creds.Username, creds.Email)
	if err != nil {
		return nil, err
	}

	summary, err := s.users.GetUser(ctx, creds.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &Session{User: *summary, Tokens: *tokens}, nil
}

// RefreshTokens generates new access and refresh tokens.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*userdomain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	// the account may have been removed since the token was issued
	summary, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(summary.ID, summary.Username, summary.Email)
}

// ValidateToken validates an access token and returns claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*userdomain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	return &userdomain.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

func (s *AuthService) generateTokenPair(userID, username, email string) (*userdomain.TokenPair, error) {
	sub := TokenSubject{UserID: userID, Username: username, Email: email}

	accessToken, err := s.jwt.GenerateAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &userdomain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

// validatePassword checks length in bytes, which is what bcrypt limits.
func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
