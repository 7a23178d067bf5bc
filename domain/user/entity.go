package user

import (
	"time"
)

// User represents an account that can own and be assigned tasks.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;type:text" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;type:text" json:"email"`
	Name         string    `gorm:"type:text" json:"name"`
	PasswordHash string    `gorm:"not null;type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Summary is the public view of a user handed to other modules.
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// ToSummary drops credentials and timestamps.
func (u *User) ToSummary() Summary {
	return Summary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
	}
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the caller identity extracted from a validated access token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials is what the identity module needs to verify a login.
type Credentials struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}
