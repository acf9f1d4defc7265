package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteMembershipRepository implements domain.MembershipRepository on SQLite.
// Write transactions start with BEGIN IMMEDIATE, so the reserved lock taken
// at Begin serializes writers and LockByUser is a plain read.
type SQLiteMembershipRepository struct {
	conn database.Connection
}

// NewSQLiteMembershipRepository creates a new SQLite membership repository.
func NewSQLiteMembershipRepository(conn database.Connection) *SQLiteMembershipRepository {
	return &SQLiteMembershipRepository{conn: conn}
}

const sqliteMembershipColumns = `id, user_id, household_id, membership_type, role, status, is_primary,
	start_date, ended_at, organisation_id, billing_cycle, next_billing_date, amount_minor,
	payment_status, created_at, updated_at`

func (r *SQLiteMembershipRepository) Insert(ctx context.Context, m *domain.Membership) error {
	rec := m.ToRecord()
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO memberships (`+sqliteMembershipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		rec.UserID.String(),
		rec.HouseholdID.String(),
		rec.Type,
		rec.Role,
		rec.Status,
		rec.IsPrimary,
		database.FormatTime(rec.StartDate),
		database.FormatNullTime(rec.EndedAt),
		nullUUID(rec.OrganisationID),
		rec.Billing.Cycle,
		database.FormatNullTime(rec.Billing.NextBillingDate),
		nullInt64(rec.Billing.AmountMinor),
		rec.Billing.PaymentStatus,
		database.FormatTime(rec.CreatedAt),
		database.FormatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert membership %s: %w", rec.ID, translateWriteError(err, sqliteConstraints))
	}
	return nil
}

func (r *SQLiteMembershipRepository) Update(ctx context.Context, m *domain.Membership) error {
	rec := m.ToRecord()
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE memberships SET
			role = ?, status = ?, is_primary = ?, ended_at = ?,
			billing_cycle = ?, next_billing_date = ?, amount_minor = ?, payment_status = ?,
			updated_at = ?
		WHERE id = ?`,
		rec.Role,
		rec.Status,
		rec.IsPrimary,
		database.FormatNullTime(rec.EndedAt),
		rec.Billing.Cycle,
		database.FormatNullTime(rec.Billing.NextBillingDate),
		nullInt64(rec.Billing.AmountMinor),
		rec.Billing.PaymentStatus,
		database.FormatTime(rec.UpdatedAt),
		rec.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update membership %s: %w", rec.ID, translateWriteError(err, sqliteConstraints))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update membership %s: %w", rec.ID, domain.ErrMembershipNotFound)
	}
	return nil
}

func (r *SQLiteMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE id = ?`, id.String())
}

func (r *SQLiteMembershipRepository) FindByUserAndHousehold(ctx context.Context, userID, householdID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = ? AND household_id = ?`, userID.String(), householdID.String())
}

func (r *SQLiteMembershipRepository) FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = ? AND status = 'active' ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID.String())
}

func (r *SQLiteMembershipRepository) FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	return r.findOne(ctx, `WHERE user_id = ? AND is_primary = 1`, userID.String())
}

func (r *SQLiteMembershipRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	ms, err := r.list(ctx, `WHERE user_id = ? ORDER BY created_at, rowid`, userID.String())
	if err != nil {
		return nil, translateReadError(err)
	}
	return ms, nil
}

func (r *SQLiteMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	return r.list(ctx, `WHERE user_id = ? ORDER BY created_at, rowid`, userID.String())
}

func (r *SQLiteMembershipRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID, filter domain.MembershipFilter) ([]*domain.Membership, error) {
	where := `WHERE household_id = ?`
	args := []any{householdID.String()}
	if len(filter.Statuses) > 0 {
		where += ` AND status IN (?` + strings.Repeat(`, ?`, len(filter.Statuses)-1) + `)`
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	return r.list(ctx, where+` ORDER BY created_at, rowid`, args...)
}

func (r *SQLiteMembershipRepository) ClearPrimaryExcept(ctx context.Context, userID, keepID uuid.UUID, at time.Time) (int64, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE memberships SET is_primary = 0, updated_at = ?
		WHERE user_id = ? AND is_primary = 1 AND id <> ?`,
		database.FormatTime(at), userID.String(), keepID.String())
	if err != nil {
		return 0, fmt.Errorf("clear primary memberships of user %s: %w", userID, translateWriteError(err, sqliteConstraints))
	}
	return result.RowsAffected()
}

func (r *SQLiteMembershipRepository) findOne(ctx context.Context, clause string, args ...any) (*domain.Membership, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+sqliteMembershipColumns+` FROM memberships `+clause, args...)
	m, err := scanSQLiteMembership(row)
	if database.IsNoRows(err) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, translateReadError(err)
	}
	return m, nil
}

func (r *SQLiteMembershipRepository) list(ctx context.Context, clause string, args ...any) ([]*domain.Membership, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+sqliteMembershipColumns+` FROM memberships `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var ms []*domain.Membership
	for rows.Next() {
		m, err := scanSQLiteMembership(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

func scanSQLiteMembership(row database.Row) (*domain.Membership, error) {
	var (
		rec                                      domain.MembershipRecord
		id, userID, householdID                  string
		startDate, createdAt, updatedAt          string
		endedAt, organisationID, nextBillingDate sql.NullString
		amountMinor                              sql.NullInt64
	)
	if err := row.Scan(
		&id, &userID, &householdID, &rec.Type, &rec.Role, &rec.Status, &rec.IsPrimary,
		&startDate, &endedAt, &organisationID, &rec.Billing.Cycle, &nextBillingDate, &amountMinor,
		&rec.Billing.PaymentStatus, &createdAt, &updatedAt,
	); err != nil {
		if database.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse membership id: %w", err)
	}
	if rec.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse membership user id: %w", err)
	}
	if rec.HouseholdID, err = uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("parse membership household id: %w", err)
	}
	if rec.OrganisationID, err = parseNullUUID(organisationID); err != nil {
		return nil, fmt.Errorf("parse membership organisation id: %w", err)
	}
	if rec.StartDate, err = database.ParseTime(startDate); err != nil {
		return nil, err
	}
	if rec.EndedAt, err = database.ParseNullTime(endedAt); err != nil {
		return nil, err
	}
	if rec.Billing.NextBillingDate, err = database.ParseNullTime(nextBillingDate); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if amountMinor.Valid {
		rec.Billing.AmountMinor = &amountMinor.Int64
	}
	return domain.RehydrateMembership(rec)
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
