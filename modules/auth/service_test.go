package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	userdomain "github.com/example/kanban-tasks/domain/user"
	"github.com/example/kanban-tasks/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// fakeUserPort is an in-memory user directory.
type fakeUserPort struct {
	mu    sync.Mutex
	users map[string]userdomain.Credentials
	names map[string]string
	next  int
}

func newFakeUserPort() *fakeUserPort {
	return &fakeUserPort{
		users: make(map[string]userdomain.Credentials),
		names: make(map[string]string),
	}
}

func (f *fakeUserPort) GetUser(_ context.Context, userID string) (*userdomain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &userdomain.Summary{ID: c.UserID, Username: c.Username, Email: c.Email, Name: f.names[userID]}, nil
}

func (f *fakeUserPort) ValidateUser(ctx context.Context, userID string) (bool, error) {
	_, err := f.GetUser(ctx, userID)
	return err == nil, nil
}

func (f *fakeUserPort) CreateUser(_ context.Context, req *user.CreateUserRequest) (*userdomain.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.users {
		if c.Username == req.Username {
			return nil, user.ErrUsernameTaken
		}
		if c.Email == req.Email {
			return nil, user.ErrEmailInUse
		}
	}
	f.next++
	id := fmt.Sprintf("user-%d", f.next)
	f.users[id] = userdomain.Credentials{UserID: id, Username: req.Username, Email: req.Email, PasswordHash: req.PasswordHash}
	f.names[id] = req.Name
	return &userdomain.Summary{ID: id, Username: req.Username, Email: req.Email, Name: req.Name}, nil
}

func (f *fakeUserPort) GetCredentials(_ context.Context, login string) (*userdomain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.users {
		if c.Username == login || c.Email == login {
			creds := c
			return &creds, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserPort) remove(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, userID)
}

func newTestAuthService() (*AuthService, *fakeUserPort) {
	users := newFakeUserPort()
	svc := NewAuthService(users, NewPasswordHasher(bcrypt.MinCost), NewJWTManager(testJWTConfig()), &mockLogger{})
	return svc, users
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
		Name:     "Alice Johnson",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", session.User.Username)
	assert.Equal(t, "Bearer", session.Tokens.TokenType)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEmpty(t, session.Tokens.RefreshToken)
	assert.Equal(t, int64(900), session.Tokens.ExpiresIn)

	claims, err := svc.ValidateToken(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name:    "short username",
			in:      RegisterInput{Username: "al", Email: "x@example.com", Password: "password123"},
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "username with space",
			in:      RegisterInput{Username: "al ice", Email: "x@example.com", Password: "password123"},
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "bad email",
			in:      RegisterInput{Username: "newuser", Email: "not-an-email", Password: "password123"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "short password",
			in:      RegisterInput{Username: "newuser", Email: "x@example.com", Password: "1234567"},
			wantErr: ErrWeakPassword,
		},
		{
			name:    "password over bcrypt limit",
			in:      RegisterInput{Username: "newuser", Email: "x@example.com", Password: strings.Repeat("a", 73)},
			wantErr: ErrPasswordTooLong,
		},
		{
			name:    "username taken",
			in:      RegisterInput{Username: "alice", Email: "other@example.com", Password: "password123"},
			wantErr: user.ErrUsernameTaken,
		},
		{
			name:    "email in use",
			in:      RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "password123"},
			wantErr: user.ErrEmailInUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123", Name: "Bob Smith"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{name: "by username", login: "bob", password: "password123"},
		{name: "by email", login: "bob@example.com", password: "password123"},
		{name: "surrounding spaces", login: "  bob ", password: "password123"},
		{name: "wrong password", login: "bob", password: "wrong-password", wantErr: ErrInvalidCredentials},
		{name: "unknown user", login: "nobody", password: "password123", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, tt.login, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bob Smith", session.User.Name)
			assert.NotEmpty(t, session.Tokens.AccessToken)
		})
	}
}

func TestAuthService_RefreshTokens(t *testing.T) {
	svc, users := newTestAuthService()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "password123"})
	require.NoError(t, err)

	tokens, err := svc.RefreshTokens(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = svc.RefreshTokens(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "an access token must not refresh")

	users.remove(session.User.ID)
	_, err = svc.RefreshTokens(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ValidateTokenRejectsRefresh(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		sentinel error
	}{
		{"credentials", ErrInvalidCredentials, "invalid_credentials", ErrInvalidCredentials},
		{"expired", ErrExpiredToken, "token_expired", ErrExpiredToken},
		{"wrapped", fmt.Errorf("wrapped: %w", user.ErrEmailInUse), "email_in_use", user.ErrEmailInUse},
		{"unexpected", fmt.Errorf("boom"), "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errorCode(tt.err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, errorForCode(tt.code, "msg"), tt.sentinel)
			}
		})
	}
}
