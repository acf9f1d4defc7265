package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/security"
)

func init() {
	database.Register(database.DriverSQLite, NewConnection)
}

// Connection wraps sql.DB to implement database.Connection for SQLite.
type Connection struct {
	db *sql.DB
}

// NewConnection opens a SQLite database.
//
// Transactions start with BEGIN IMMEDIATE so the writer lock is taken before
// the first read; combined with a single pooled connection this serializes
// all membership mutations.
func NewConnection(ctx context.Context, cfg database.Config) (database.Connection, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = database.DefaultSQLitePath()
	}
	if path != ":memory:" {
		file, params, hasParams := strings.Cut(path, "?")
		resolved, err := security.ResolvePath(file)
		if err != nil {
			return nil, fmt.Errorf("sqlite path: %w", err)
		}
		path = resolved
		if hasParams {
			path += "?" + params
		}
		if err := database.EnsureDirectory(resolved); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + strings.Join([]string{
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()),
		"_pragma=synchronous(NORMAL)",
		"_txlock=immediate",
	}, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &Connection{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (c *Connection) DB() *sql.DB {
	return c.db
}

func (c *Connection) Driver() database.Driver {
	return database.DriverSQLite
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// BeginTx starts a new transaction.
func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(err)
	}
	return &Transaction{tx: tx}, nil
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return database.TranslateRow(c.db.QueryRowContext(ctx, query, args...), translateError)
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return database.WrapSQLRows(rows), nil
}

// Transaction wraps sql.Tx to implement database.Transaction.
type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit(ctx context.Context) error {
	return translateError(t.tx.Commit())
}

func (t *Transaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (t *Transaction) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return database.TranslateRow(t.tx.QueryRowContext(ctx, query, args...), translateError)
}

func (t *Transaction) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return database.WrapSQLRows(rows), nil
}

var constraintPrefixes = []struct {
	prefix string
	kind   database.ConstraintKind
}{
	{"UNIQUE constraint failed: ", database.ConstraintUnique},
	{"CHECK constraint failed: ", database.ConstraintCheck},
	{"NOT NULL constraint failed: ", database.ConstraintNotNull},
	{"FOREIGN KEY constraint failed", database.ConstraintForeignKey},
}

// translateError maps modernc sqlite errors onto database error types.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	code := sqliteErr.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %v", database.ErrTxConflict, err)
	case sqlite3.SQLITE_CONSTRAINT:
	default:
		return err
	}

	ce := &database.ConstraintError{Driver: database.DriverSQLite, Kind: database.ConstraintOther, Err: err}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		ce.Kind = database.ConstraintUnique
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		ce.Kind = database.ConstraintCheck
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		ce.Kind = database.ConstraintForeignKey
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		ce.Kind = database.ConstraintNotNull
	}

	msg := sqliteErr.Error()
	for _, p := range constraintPrefixes {
		idx := strings.Index(msg, p.prefix)
		if idx < 0 {
			continue
		}
		if ce.Kind == database.ConstraintOther {
			ce.Kind = p.kind
		}
		detail := msg[idx+len(p.prefix):]
		if end := strings.LastIndex(detail, " ("); end >= 0 {
			detail = detail[:end]
		}
		ce.Constraint = strings.TrimSpace(detail)
		break
	}
	return ce
}
