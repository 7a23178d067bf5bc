package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test-issuer",
	}
}

var testSubject = TokenSubject{UserID: "user-1", Username: "alice", Email: "alice@example.com"}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	tests := []struct {
		name      string
		generate  func(TokenSubject) (string, error)
		validate  func(string) (*JWTClaims, error)
		tokenType string
	}{
		{
			name:      "access token",
			generate:  manager.GenerateAccessToken,
			validate:  manager.ValidateAccessToken,
			tokenType: "access",
		},
		{
			name:      "refresh token",
			generate:  manager.GenerateRefreshToken,
			validate:  manager.ValidateRefreshToken,
			tokenType: "refresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.generate(testSubject)
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}
			if token == "" {
				t.Fatal("generate returned empty token")
			}

			claims, err := tt.validate(token)
			if err != nil {
				t.Fatalf("validate error = %v", err)
			}
			if claims.UserID != testSubject.UserID {
				t.Errorf("claims.UserID = %v, want %v", claims.UserID, testSubject.UserID)
			}
			if claims.Username != testSubject.Username {
				t.Errorf("claims.Username = %v, want %v", claims.Username, testSubject.Username)
			}
			if claims.Email != testSubject.Email {
				t.Errorf("claims.Email = %v, want %v", claims.Email, testSubject.Email)
			}
			if claims.TokenType != tt.tokenType {
				t.Errorf("claims.TokenType = %v, want %v", claims.TokenType, tt.tokenType)
			}
			if claims.Subject != testSubject.UserID {
				t.Errorf("claims.Subject = %v, want %v", claims.Subject, testSubject.UserID)
			}
		})
	}
}

func TestJWTManager_TokenTypesAreNotInterchangeable(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	access, err := manager.GenerateAccessToken(testSubject)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	refresh, err := manager.GenerateRefreshToken(testSubject)
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	otherSecret := testJWTConfig()
	otherSecret.SecretKey = "another-secret"
	foreignToken, err := NewJWTManager(otherSecret).GenerateAccessToken(testSubject)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	wrongIssuerToken, err := NewJWTManager(otherIssuer).GenerateAccessToken(testSubject)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	expired := testJWTConfig()
	expired.AccessTokenDuration = -time.Minute
	expiredToken, err := NewJWTManager(expired).GenerateAccessToken(testSubject)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty token", token: "", wantErr: ErrInvalidToken},
		{name: "random string", token: "not.a.valid.token", wantErr: ErrInvalidToken},
		{name: "malformed jwt", token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid", wantErr: ErrInvalidToken},
		{name: "wrong secret", token: foreignToken, wantErr: ErrInvalidToken},
		{name: "wrong issuer", token: wrongIssuerToken, wantErr: ErrInvalidToken},
		{name: "expired", token: expiredToken, wantErr: ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateToken(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTManager_AccessTokenDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     int64
	}{
		{name: "30 minutes", duration: 30 * time.Minute, want: 1800},
		{name: "default 24 hours", duration: DefaultJWTConfig().AccessTokenDuration, want: 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testJWTConfig()
			cfg.AccessTokenDuration = tt.duration
			if got := NewJWTManager(cfg).AccessTokenDuration(); got != tt.want {
				t.Errorf("AccessTokenDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
