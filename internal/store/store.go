// Package store persists transformed datasets to a file-backed SQLite
// database and keeps a history of pipeline runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// Driver names accepted by Open.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// DSN parameters applied to every connection.
const (
	defaultBusyTimeout = 5 * time.Second
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
	pingTimeout        = 5 * time.Second
)

// Error reports a failed store operation.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures Open.
type Options struct {
	Path string
	// Driver is DriverCgo (default) or DriverPure.
	Driver      string
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Store wraps a single-writer connection pool.
type Store struct {
	db     *sql.DB
	path   string
	driver string
	logger *slog.Logger
}

// Open opens (creating if needed) the database at opts.Path and verifies the
// connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, &Error{Op: "open", Err: fmt.Errorf("empty path")}
	}
	if opts.Driver == "" {
		opts.Driver = DriverCgo
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	dsn, err := BuildDSN(opts.Driver, opts.Path, opts.BusyTimeout)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "open", Err: fmt.Errorf("ping %s: %w", opts.Path, err)}
	}

	opts.Logger.Debug("store opened", "path", opts.Path, "driver", opts.Driver)
	return &Store{db: db, path: opts.Path, driver: opts.Driver, logger: opts.Logger}, nil
}

// BuildDSN constructs a hardened DSN for driver. The two drivers spell
// connection pragmas differently.
func BuildDSN(driver, path string, busyTimeout time.Duration) (string, error) {
	params := url.Values{}
	ms := fmt.Sprint(busyTimeout.Milliseconds())

	switch driver {
	case DriverCgo:
		params.Set("_journal_mode", defaultJournalMode)
		params.Set("_busy_timeout", ms)
		params.Set("_synchronous", defaultSynchronous)
		params.Set("_foreign_keys", "on")
		params.Set("_txlock", "immediate")
	case DriverPure:
		params.Add("_pragma", "journal_mode("+defaultJournalMode+")")
		params.Add("_pragma", "busy_timeout("+ms+")")
		params.Add("_pragma", "synchronous("+defaultSynchronous+")")
		params.Add("_pragma", "foreign_keys(1)")
		params.Set("_txlock", "immediate")
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}

	return path + "?" + params.Encode(), nil
}

// DB exposes the connection pool for read-only consumers.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &Error{Op: "close", Err: err}
	}
	return nil
}
