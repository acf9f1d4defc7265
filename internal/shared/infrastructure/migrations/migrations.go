// Package migrations applies the embedded schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq" // database/sql driver for goose on PostgreSQL
	"github.com/pressly/goose/v3"

	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Applied describes one migration that ran.
type Applied struct {
	Version int64
	Source  string
}

// sqlDB is implemented by connections backed by database/sql.
type sqlDB interface {
	DB() *sql.DB
}

// Up applies all pending migrations for conn.
//
// SQLite migrations run on the connection's own handle. PostgreSQL migrations
// open a short-lived lib/pq handle on url because goose needs database/sql.
func Up(ctx context.Context, conn database.Connection, url string) ([]Applied, error) {
	db, closeDB, err := handleFor(conn, url)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	provider, err := newProvider(conn.Driver(), db)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}

	applied := make([]Applied, 0, len(results))
	for _, r := range results {
		applied = append(applied, Applied{Version: r.Source.Version, Source: r.Source.Path})
	}
	return applied, nil
}

// Version returns the current schema version.
func Version(ctx context.Context, conn database.Connection, url string) (int64, error) {
	db, closeDB, err := handleFor(conn, url)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	provider, err := newProvider(conn.Driver(), db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func newProvider(driver database.Driver, db *sql.DB) (*goose.Provider, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch driver {
	case database.DriverSQLite:
		dialect, dir = goose.DialectSQLite3, "sqlite"
	case database.DriverPostgres:
		dialect, dir = goose.DialectPostgres, "postgres"
	default:
		return nil, fmt.Errorf("no migrations for driver %s", driver)
	}

	fsys, err := fs.Sub(embedded, dir)
	if err != nil {
		return nil, fmt.Errorf("open %s migrations: %w", dir, err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

func handleFor(conn database.Connection, url string) (*sql.DB, func(), error) {
	if h, ok := conn.(sqlDB); ok {
		return h.DB(), func() {}, nil
	}
	if conn.Driver() != database.DriverPostgres {
		return nil, nil, fmt.Errorf("driver %s does not expose a database/sql handle", conn.Driver())
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres for migrations: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}
