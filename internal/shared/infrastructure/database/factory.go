package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds database configuration.
type Config struct {
	// Driver selects the backend. Empty or "auto" detects it from URL.
	Driver Driver

	// URL is the PostgreSQL connection string.
	URL string

	// SQLitePath is the SQLite file, or ":memory:".
	SQLitePath string

	// MaxConns caps the PostgreSQL pool.
	MaxConns int

	// BusyTimeout is how long SQLite waits for the writer lock.
	BusyTimeout time.Duration
}

type connector func(ctx context.Context, cfg Config) (Connection, error)

var connectors = map[Driver]connector{}

// Register installs the connection factory for a driver.
// Driver packages call it from init.
func Register(driver Driver, fn func(ctx context.Context, cfg Config) (Connection, error)) {
	connectors[driver] = fn
}

// NewConnection opens a connection for the configured driver.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}
	if driver == DriverSQLite && cfg.SQLitePath == "" && cfg.URL != "" {
		cfg.SQLitePath = SQLitePathFromURL(cfg.URL)
	}

	fn, ok := connectors[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return fn(ctx, cfg)
}

// DefaultSQLitePath returns ~/.hearth/hearth.db.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".hearth", "hearth.db")
}

// EnsureDirectory creates the parent directory for a file path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
