package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresUserRepository implements domain.UserRepository on PostgreSQL.
type PostgresUserRepository struct {
	conn database.Connection
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(conn database.Connection) *PostgresUserRepository {
	return &PostgresUserRepository{conn: conn}
}

func (r *PostgresUserRepository) Insert(ctx context.Context, u *domain.User) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO users (id, email, name, role, household_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID(), u.Email().String(), u.Name(), string(u.Role()), u.HouseholdID(), u.CreatedAt(), u.UpdatedAt())
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID(), translateWriteError(err, postgresConstraints))
	}
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email.String())
}

func (r *PostgresUserRepository) UpdateScope(ctx context.Context, u *domain.User) error {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE users SET household_id = $1, role = $2, updated_at = $3 WHERE id = $4`,
		u.HouseholdID(), string(u.Role()), u.UpdatedAt(), u.ID())
	if err != nil {
		return fmt.Errorf("update scope of user %s: %w", u.ID(), translateWriteError(err, postgresConstraints))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update scope of user %s: %w", u.ID(), domain.ErrUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, clause string, args ...any) (*domain.User, error) {
	var (
		id                   uuid.UUID
		email, name, role    string
		householdID          *uuid.UUID
		createdAt, updatedAt time.Time
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, email, name, role, household_id, created_at, updated_at FROM users `+clause, args...,
	).Scan(&id, &email, &name, &role, &householdID, &createdAt, &updatedAt)
	if database.IsNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", translateReadError(err))
	}
	return rehydrateUser(id, email, name, role, householdID, createdAt, updatedAt)
}
