package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/task"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, status, priority, tags, user_id, created_at, updated_at`

// PostgresStorage persists tasks in PostgreSQL with tags in a TEXT[] column.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	userID string
	scoped bool
}

var _ domain.Storage = (*PostgresStorage)(nil)

// NewPostgresStorage creates a store over pool that sees every task.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

// ForUser returns a view restricted to rows owned by userID.
func (s *PostgresStorage) ForUser(userID string) domain.Storage {
	return &PostgresStorage{pool: s.pool, userID: userID, scoped: true}
}

// ownerClause appends the owner predicate as parameter $n when scoped.
func (s *PostgresStorage) ownerClause(args []any) (string, []any) {
	if !s.scoped {
		return "", args
	}
	args = append(args, s.userID)
	return fmt.Sprintf(" AND user_id = $%d", len(args)), args
}

func (s *PostgresStorage) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	t := task.Clone()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if s.scoped {
		t.UserID = s.userID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.Tags, t.UserID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateKeyError(err) {
			return nil, apperr.AlreadyExists("task %s already exists", t.ID)
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) Get(ctx context.Context, id string) (*domain.Task, error) {
	owner, args := s.ownerClause([]any{id})
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`+owner, args...)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) GetAll(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if s.scoped {
		query += ` WHERE user_id = $1`
		args = append(args, s.userID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStorage) Update(ctx context.Context, id string, task *domain.Task) (*domain.Task, error) {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	owner, args := s.ownerClause([]any{
		id, task.Title, task.Description, string(task.Status), string(task.Priority), tags, task.UpdatedAt,
	})

	row := s.pool.QueryRow(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, priority = $5, tags = $6, updated_at = $7
		 WHERE id = $1`+owner+` RETURNING `+taskColumns,
		args...,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task %s not found", id)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) Delete(ctx context.Context, id string) error {
	owner, args := s.ownerClause([]any{id})
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`+owner, args...)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("task %s not found", id)
	}
	return nil
}

func (s *PostgresStorage) Exists(ctx context.Context, id string) (bool, error) {
	owner, args := s.ownerClause([]any{id})
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1`+owner+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return exists, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t        domain.Task
		status   string
		priority string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &t.Tags, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

// isPgDuplicateKeyError checks if error is a PostgreSQL unique violation.
func isPgDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
