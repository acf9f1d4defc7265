package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteUserRepository implements domain.UserRepository on SQLite.
type SQLiteUserRepository struct {
	conn database.Connection
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(conn database.Connection) *SQLiteUserRepository {
	return &SQLiteUserRepository{conn: conn}
}

const sqliteUserColumns = `id, email, name, role, household_id, created_at, updated_at`

func (r *SQLiteUserRepository) Insert(ctx context.Context, u *domain.User) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO users (`+sqliteUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID().String(),
		u.Email().String(),
		u.Name(),
		string(u.Role()),
		nullUUID(u.HouseholdID()),
		database.FormatTime(u.CreatedAt()),
		database.FormatTime(u.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID(), translateWriteError(err, sqliteConstraints))
	}
	return nil
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `WHERE id = ?`, id.String())
}

func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	return r.findOne(ctx, `WHERE email = ?`, email.String())
}

func (r *SQLiteUserRepository) UpdateScope(ctx context.Context, u *domain.User) error {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE users SET household_id = ?, role = ?, updated_at = ? WHERE id = ?`,
		nullUUID(u.HouseholdID()), string(u.Role()), database.FormatTime(u.UpdatedAt()), u.ID().String())
	if err != nil {
		return fmt.Errorf("update scope of user %s: %w", u.ID(), translateWriteError(err, sqliteConstraints))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update scope of user %s: %w", u.ID(), domain.ErrUserNotFound)
	}
	return nil
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, clause string, args ...any) (*domain.User, error) {
	var (
		id, email, name, role string
		householdID           sql.NullString
		createdAt, updatedAt  string
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+sqliteUserColumns+` FROM users `+clause, args...,
	).Scan(&id, &email, &name, &role, &householdID, &createdAt, &updatedAt)
	if database.IsNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", translateReadError(err))
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	hid, err := parseNullUUID(householdID)
	if err != nil {
		return nil, fmt.Errorf("parse user household id: %w", err)
	}
	created, err := database.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := database.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return rehydrateUser(uid, email, name, role, hid, created, updated)
}
