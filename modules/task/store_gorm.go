package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/kanban-tasks/domain/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore persists tasks through GORM. Conditional writes are single UPDATE/DELETE
// statements guarded by "version = ?".
type GormStore struct {
	db *gorm.DB
}

var _ domain.Store = (*GormStore)(nil)

// OpenSQLite opens a SQLite database for the task store.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewGormStore migrates the tasks table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get retrieves a task by its ID.
func (s *GormStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.TaskNotFound(id)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// ConditionalPut inserts when expectedVersion is NoVersion and otherwise updates the row
// only if its version still equals expectedVersion.
func (s *GormStore) ConditionalPut(ctx context.Context, id string, expectedVersion int64, t *domain.Task) (*domain.Task, error) {
	stored := t.Clone()
	stored.ID = id
	db := s.db.WithContext(ctx)

	if expectedVersion == domain.NoVersion {
		if err := db.Create(stored).Error; err != nil {
			if exists, _ := s.exists(ctx, id); exists {
				return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
			}
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		return stored, nil
	}

	result := db.Model(&domain.Task{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"title":       stored.Title,
			"description": stored.Description,
			"status":      stored.Status,
			"priority":    stored.Priority,
			"assigned_to": stored.AssignedTo,
			"updated_at":  stored.UpdatedAt,
			"version":     stored.Version,
		})
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, s.missOrConflict(ctx, id, expectedVersion)
	}
	return stored, nil
}

// Delete removes the row only if its version equals expectedVersion.
func (s *GormStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, expectedVersion).
		Delete(&domain.Task{})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return s.missOrConflict(ctx, id, expectedVersion)
	}
	return nil
}

// Query filters, sorts and pages tasks in SQL.
func (s *GormStore) Query(ctx context.Context, q domain.Query) (domain.Page[*domain.Task], error) {
	filter := func(db *gorm.DB) *gorm.DB {
		return applyGormFilter(db, q.Filter)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Task{}).Scopes(filter).Count(&total).Error; err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []*domain.Task
	err := s.db.WithContext(ctx).
		Scopes(filter).
		Order(orderClause(q.Sort)).
		Offset(q.Page.Offset()).
		Limit(q.Page.Size).
		Find(&tasks).Error
	if err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to query tasks: %w", err)
	}

	return domain.NewPage(tasks, total, q.Page), nil
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyGormFilter(db *gorm.DB, f domain.Filter) *gorm.DB {
	if f.Title != "" {
		db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, containsPattern(f.Title))
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		db = db.Where("priority = ?", f.Priority)
	}
	if f.CreatedBy != "" {
		db = db.Where("created_by = ?", f.CreatedBy)
	}
	switch f.Assignee.Mode {
	case domain.AssigneeUnassigned:
		db = db.Where("(assigned_to IS NULL OR assigned_to = '')")
	case domain.AssigneeUser:
		db = db.Where("assigned_to = ?", f.Assignee.UserID)
	}
	return db
}

func (s *GormStore) exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// missOrConflict explains a guarded write that matched no row.
func (s *GormStore) missOrConflict(ctx context.Context, id string, expectedVersion int64) error {
	exists, err := s.exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return domain.TaskNotFound(id)
	}
	return &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
}
