package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
)

const userColumns = `id::text, name, email, password_hash, role, created_at`

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a user. Emails are stored lower-cased.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.create")
	defer span.End()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		user.Name, user.Email, user.PasswordHash, user.Role,
	), user)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrUserAlreadyExists
		} else {
			err = mapError("create user", err, nil)
		}
	}
	recordSpan(span, err)
	return err
}

// GetByEmail looks a user up by email, case-insensitively
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.get_by_email")
	defer span.End()

	user := &domain.User{}
	err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	), user)
	if err != nil {
		err = mapError("get user", err, domain.ErrUserNotFound)
		recordSpan(span, err)
		return nil, err
	}
	recordSpan(span, nil)
	return user, nil
}

// GetByID retrieves a user by its ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.get_by_id")
	defer span.End()

	user := &domain.User{}
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		err = mapError("get user", err, domain.ErrUserNotFound)
		recordSpan(span, err)
		return nil, err
	}
	recordSpan(span, nil)
	return user, nil
}

func scanUser(row pgx.Row, u *domain.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
}
