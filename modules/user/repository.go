package user

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrEmailInUse is returned when the email is already registered.
	ErrEmailInUse = errors.New("email is already in use")
)

// OpenDatabase opens the SQLite user database.
func OpenDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Migrate creates or updates the users table.
func (r *UserRepository) Migrate() error {
	if err := r.db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Create inserts a user. Username and email must both be unused.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	taken, err := r.exists(ctx, "username = ?", user.Username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	inUse, err := r.exists(ctx, "email = ?", user.Email)
	if err != nil {
		return err
	}
	if inUse {
		return ErrEmailInUse
	}

	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		// lost a race with a concurrent registration
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", result.Error)
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByLogin finds a user by username, or by email when no username matches.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	user, err := r.findOne(ctx, "username = ?", login)
	if errors.Is(err, ErrUserNotFound) {
		return r.findOne(ctx, "email = ?", login)
	}
	return user, err
}

// Exists reports whether a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "id = ?", id)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (r *UserRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", result.Error)
	}
	return &user, nil
}

func (r *UserRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check user existence: %w", result.Error)
	}
	return count > 0, nil
}
