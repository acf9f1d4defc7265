package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresHouseholdRepository implements domain.HouseholdRepository on PostgreSQL.
type PostgresHouseholdRepository struct {
	conn database.Connection
}

// NewPostgresHouseholdRepository creates a new PostgreSQL household repository.
func NewPostgresHouseholdRepository(conn database.Connection) *PostgresHouseholdRepository {
	return &PostgresHouseholdRepository{conn: conn}
}

func (r *PostgresHouseholdRepository) Insert(ctx context.Context, h *domain.Household) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`INSERT INTO households (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		h.ID(), h.Name(), h.CreatedAt(), h.UpdatedAt())
	if err != nil {
		return fmt.Errorf("insert household %s: %w", h.ID(), err)
	}
	return nil
}

func (r *PostgresHouseholdRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	var (
		name                 string
		createdAt, updatedAt time.Time
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT name, created_at, updated_at FROM households WHERE id = $1`, id,
	).Scan(&name, &createdAt, &updatedAt)
	if database.IsNoRows(err) {
		return nil, domain.ErrHouseholdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query household %s: %w", id, err)
	}
	return domain.RehydrateHousehold(id, name, createdAt, updatedAt), nil
}

func (r *PostgresHouseholdRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Household, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT h.id, h.name, h.created_at, h.updated_at
		FROM households h
		JOIN memberships m ON m.household_id = h.id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query households of user %s: %w", userID, err)
	}
	defer rows.Close()

	var households []*domain.Household
	for rows.Next() {
		var (
			id                   uuid.UUID
			name                 string
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, domain.RehydrateHousehold(id, name, createdAt, updatedAt))
	}
	return households, rows.Err()
}
