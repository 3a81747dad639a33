package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, full_name, password_hash, is_active, created_at, updated_at`

// PostgresUserRepository stores users in PostgreSQL through a pgx pool.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*PostgresUserRepository)(nil)

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.FullName, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("user with email %s already exists", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scan(row, id)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scan(row, email)
}

// Update rewrites the mutable columns; COALESCE keeps columns whose
// parameter is NULL. full_name uses a flag so it can be cleared.
func (r *PostgresUserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	var fullName *string
	if update.FullName != nil && *update.FullName != "" {
		fullName = update.FullName
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email         = COALESCE($2, email),
			full_name     = CASE WHEN $3 THEN $4 ELSE full_name END,
			password_hash = COALESCE($5, password_hash),
			is_active     = COALESCE($6, is_active),
			updated_at    = $7
		WHERE id = $1
		RETURNING `+userColumns,
		id, update.Email, update.FullName != nil, fullName, update.PasswordHash, update.IsActive,
		time.Now().UTC().Truncate(time.Microsecond),
	)

	user, err := r.scan(row, id)
	if err != nil && isUniqueViolation(err) && update.Email != nil {
		return nil, apperr.AlreadyExists("user with email %s already exists", *update.Email)
	}
	return user, err
}

func (r *PostgresUserRepository) scan(row pgx.Row, key string) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user %s not found", key)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
