package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		title       VARCHAR(100) NOT NULL,
		description VARCHAR(1000) NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		priority    TEXT NOT NULL,
		created_by  TEXT NOT NULL,
		assigned_to TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		version     BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks (priority)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks (created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to)`,
}

const taskColumns = "id, title, description, status, priority, created_by, assigned_to, created_at, updated_at, version"

// PostgresStore persists tasks in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*PostgresStore)(nil)

// NewPostgresStore connects to url, verifies the connection and creates the schema.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Get retrieves a task by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.TaskNotFound(id)
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return t, nil
}

// ConditionalPut inserts for NoVersion and otherwise runs a version-guarded UPDATE.
func (s *PostgresStore) ConditionalPut(ctx context.Context, id string, expectedVersion int64, t *domain.Task) (*domain.Task, error) {
	if expectedVersion == domain.NoVersion {
		row := s.pool.QueryRow(ctx,
			`INSERT INTO tasks (`+taskColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING `+taskColumns,
			id, t.Title, t.Description, string(t.Status), string(t.Priority),
			t.CreatedBy, t.AssignedTo, t.CreatedAt, t.UpdatedAt, t.Version,
		)
		saved, err := scanTask(row)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
			}
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		return saved, nil
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = $3, description = $4, status = $5, priority = $6,
		     assigned_to = $7, updated_at = $8, version = $9
		 WHERE id = $1 AND version = $2
		 RETURNING `+taskColumns,
		id, expectedVersion, t.Title, t.Description, string(t.Status), string(t.Priority),
		t.AssignedTo, t.UpdatedAt, t.Version,
	)
	saved, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missOrConflict(ctx, id, expectedVersion)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return saved, nil
}

// Delete removes the row only if its version equals expectedVersion.
func (s *PostgresStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND version = $2", id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id, expectedVersion)
	}
	return nil
}

// Query filters, sorts and pages tasks.
func (s *PostgresStore) Query(ctx context.Context, q domain.Query) (domain.Page[*domain.Task], error) {
	where, args := postgresWhere(q.Filter)

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM tasks%s ORDER BY %s LIMIT $%d OFFSET $%d",
		taskColumns, where, orderClause(q.Sort), len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, sql, append(args, q.Page.Size, q.Page.Offset())...)
	if err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0, q.Page.Size)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return domain.Page[*domain.Task]{}, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[*domain.Task]{}, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return domain.NewPage(tasks, total, q.Page), nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) missOrConflict(ctx context.Context, id string, expectedVersion int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return domain.TaskNotFound(id)
	}
	return &domain.ConflictError{TaskID: id, Expected: expectedVersion, Actual: -1}
}

func postgresWhere(f domain.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Title != "" {
		add(`LOWER(title) LIKE $%d ESCAPE '\'`, containsPattern(f.Title))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = $%d", string(f.Priority))
	}
	if f.CreatedBy != "" {
		add("created_by = $%d", f.CreatedBy)
	}
	switch f.Assignee.Mode {
	case domain.AssigneeUnassigned:
		clauses = append(clauses, "(assigned_to IS NULL OR assigned_to = '')")
	case domain.AssigneeUser:
		add("assigned_to = $%d", f.Assignee.UserID)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                domain.Task
		status, priority string
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority,
		&t.CreatedBy, &t.AssignedTo, &createdAt, &updatedAt, &t.Version); err != nil {
		return nil, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return &t, nil
}

// isUniqueViolation checks if error is a PostgreSQL unique violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
