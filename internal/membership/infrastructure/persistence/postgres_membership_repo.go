package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// PostgresMembershipRepository implements domain.MembershipRepository on
// PostgreSQL. The seq identity column orders memberships created in the
// same instant.
type PostgresMembershipRepository struct {
	conn database.Connection
}

// NewPostgresMembershipRepository creates a new PostgreSQL membership repository.
func NewPostgresMembershipRepository(conn database.Connection) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{conn: conn}
}

const postgresMembershipColumns = `id, user_id, household_id, membership_type, role, status, is_primary,
	start_date, ended_at, organisation_id, billing_cycle, next_billing_date, amount_minor,
	payment_status, created_at, updated_at`

func (r *PostgresMembershipRepository) Insert(ctx context.Context, m *domain.Membership) error {
	rec := m.ToRecord()
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO memberships (`+postgresMembershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.UserID, rec.HouseholdID, rec.Type, rec.Role, rec.Status, rec.IsPrimary,
		rec.StartDate, rec.EndedAt, rec.OrganisationID, rec.Billing.Cycle, rec.Billing.NextBillingDate,
		rec.Billing.AmountMinor, rec.Billing.PaymentStatus, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert membership %s: %w", rec.ID, translateWriteError(err, postgresConstraints))
	}
	return nil
}

func (r *PostgresMembershipRepository) Update(ctx context.Context, m *domain.Membership) error {
	rec := m.ToRecord()
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE memberships SET
			role = $1, status = $2, is_primary = $3, ended_at = $4,
			billing_cycle = $5, next_billing_date = $6, amount_minor = $7, payment_status = $8,
			updated_at = $9
		WHERE id = $10`,
		rec.Role, rec.Status, rec.IsPrimary, rec.EndedAt,
		rec.Billing.Cycle, rec.Billing.NextBillingDate, rec.Billing.AmountMinor, rec.Billing.PaymentStatus,
		rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update membership %s: %w", rec.ID, translateWriteError(err, postgresConstraints))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update membership %s: %w", rec.ID, domain.ErrMembershipNotFound)
	}
	return nil
}

func (r *PostgresMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresMembershipRepository) FindByUserAndHousehold(ctx context.Context, userID, householdID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = $1 AND household_id = $2`, userID, householdID)
}

func (r *PostgresMembershipRepository) FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC, seq DESC LIMIT 1`, userID)
}

func (r *PostgresMembershipRepository) FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = $1 AND is_primary`, userID)
}

// LockByUser takes the user row lock first, then locks the memberships in
// id order. Every writer for a user goes through the same row, so two
// transactions never hold overlapping membership locks in different orders.
func (r *PostgresMembershipRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	var locked uuid.UUID
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&locked)
	if database.IsNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, translateReadError(err))
	}

	ms, err := r.list(ctx, `WHERE user_id = $1 ORDER BY id FOR UPDATE`, userID)
	if err != nil {
		return nil, translateReadError(err)
	}
	return ms, nil
}

func (r *PostgresMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	return r.list(ctx, `WHERE user_id = $1 ORDER BY created_at, seq`, userID)
}

func (r *PostgresMembershipRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID, filter domain.MembershipFilter) ([]*domain.Membership, error) {
	if len(filter.Statuses) == 0 {
		return r.list(ctx, `WHERE household_id = $1 ORDER BY created_at, seq`, householdID)
	}
	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}
	return r.list(ctx, `WHERE household_id = $1 AND status = ANY($2) ORDER BY created_at, seq`, householdID, statuses)
}

func (r *PostgresMembershipRepository) ClearPrimaryExcept(ctx context.Context, userID, keepID uuid.UUID, at time.Time) (int64, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE memberships SET is_primary = FALSE, updated_at = $1
		WHERE user_id = $2 AND is_primary AND id <> $3`,
		at, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("clear primary memberships of user %s: %w", userID, translateWriteError(err, postgresConstraints))
	}
	return result.RowsAffected()
}

func (r *PostgresMembershipRepository) findOne(ctx context.Context, clause string, args ...any) (*domain.Membership, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+postgresMembershipColumns+` FROM memberships `+clause, args...)
	m, err := scanPostgresMembership(row)
	if database.IsNoRows(err) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, translateReadError(err)
	}
	return m, nil
}

func (r *PostgresMembershipRepository) list(ctx context.Context, clause string, args ...any) ([]*domain.Membership, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+postgresMembershipColumns+` FROM memberships `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var ms []*domain.Membership
	for rows.Next() {
		m, err := scanPostgresMembership(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

func scanPostgresMembership(row database.Row) (*domain.Membership, error) {
	var rec domain.MembershipRecord
	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.HouseholdID, &rec.Type, &rec.Role, &rec.Status, &rec.IsPrimary,
		&rec.StartDate, &rec.EndedAt, &rec.OrganisationID, &rec.Billing.Cycle, &rec.Billing.NextBillingDate,
		&rec.Billing.AmountMinor, &rec.Billing.PaymentStatus, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		if database.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return domain.RehydrateMembership(rec)
}
