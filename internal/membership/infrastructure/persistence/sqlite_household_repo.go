package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteHouseholdRepository implements domain.HouseholdRepository on SQLite.
type SQLiteHouseholdRepository struct {
	conn database.Connection
}

// NewSQLiteHouseholdRepository creates a new SQLite household repository.
func NewSQLiteHouseholdRepository(conn database.Connection) *SQLiteHouseholdRepository {
	return &SQLiteHouseholdRepository{conn: conn}
}

func (r *SQLiteHouseholdRepository) Insert(ctx context.Context, h *domain.Household) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`INSERT INTO households (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		h.ID().String(), h.Name(), database.FormatTime(h.CreatedAt()), database.FormatTime(h.UpdatedAt()))
	if err != nil {
		return fmt.Errorf("insert household %s: %w", h.ID(), err)
	}
	return nil
}

func (r *SQLiteHouseholdRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	var name, createdAt, updatedAt string
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT name, created_at, updated_at FROM households WHERE id = ?`, id.String(),
	).Scan(&name, &createdAt, &updatedAt)
	if database.IsNoRows(err) {
		return nil, domain.ErrHouseholdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query household %s: %w", id, err)
	}
	return rehydrateSQLiteHousehold(id.String(), name, createdAt, updatedAt)
}

// ListForUser returns the households the user has a membership in, whatever
// its status, in membership creation order.
func (r *SQLiteHouseholdRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Household, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT h.id, h.name, h.created_at, h.updated_at
		FROM households h
		JOIN memberships m ON m.household_id = h.id
		WHERE m.user_id = ?
		ORDER BY m.created_at, m.rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query households of user %s: %w", userID, err)
	}
	defer rows.Close()

	var households []*domain.Household
	for rows.Next() {
		var id, name, createdAt, updatedAt string
		if err := rows.Scan(&id, &name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		h, err := rehydrateSQLiteHousehold(id, name, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

func rehydrateSQLiteHousehold(id, name, createdAt, updatedAt string) (*domain.Household, error) {
	hid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse household id: %w", err)
	}
	created, err := database.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := database.ParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateHousehold(hid, name, created, updated), nil
}
