package database

import (
	"context"
	"database/sql"
)

// Row represents a single result row.
type Row interface {
	Scan(dest ...any) error
}

// Rows represents multiple result rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Result represents the result of an Exec operation.
type Result interface {
	RowsAffected() (int64, error)
}

// Executor runs statements on a connection or inside a transaction.
// Driver errors are normalized by TranslateError before they are returned.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Transaction wraps Executor with Commit/Rollback capabilities.
type Transaction interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection represents a database handle that can open transactions.
type Connection interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
	Ping(ctx context.Context) error
	Driver() Driver
}

// ErrorTranslator maps driver-native errors onto this package's error types.
type ErrorTranslator func(error) error

// translatedRow defers translation until Scan, where pgx and database/sql
// report statement errors for single-row queries.
type translatedRow struct {
	row       Row
	translate ErrorTranslator
}

// TranslateRow wraps a Row so Scan errors are normalized.
func TranslateRow(row Row, translate ErrorTranslator) Row {
	return &translatedRow{row: row, translate: translate}
}

func (r *translatedRow) Scan(dest ...any) error {
	return r.translate(r.row.Scan(dest...))
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Close() error           { return r.rows.Close() }
func (r *sqlRows) Err() error             { return r.rows.Err() }

// WrapSQLRows adapts *sql.Rows to Rows.
func WrapSQLRows(r *sql.Rows) Rows {
	return &sqlRows{rows: r}
}
