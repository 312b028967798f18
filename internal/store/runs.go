package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusLoaded    = "loaded"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord is one entry of the run history.
type RunRecord struct {
	ID         string
	Variant    string
	Table      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Stats      json.RawMessage
	Error      string
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Migrate applies the embedded run-history migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return &Error{Op: "migrate", Err: fmt.Errorf("goose set dialect: %w", err)}
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return &Error{Op: "migrate", Err: fmt.Errorf("goose up: %w", err)}
	}
	return nil
}

// RecordRun inserts or updates a run history entry.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	stats := string(r.Stats)
	if stats == "" {
		stats = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO etl_runs (id, variant, table_name, started_at, finished_at, status, stats, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status      = excluded.status,
			stats       = excluded.stats,
			error       = excluded.error`,
		r.ID, r.Variant, r.Table,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
		r.Status, stats, r.Error,
	)
	if err != nil {
		return &Error{Op: "record run", Table: "etl_runs", Err: err}
	}
	return nil
}

// Runs returns the most recent runs, newest first. An empty variant matches
// every variant; a non-positive limit returns all runs.
func (s *Store) Runs(ctx context.Context, variant string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variant, table_name, started_at, finished_at, status, stats, error
		FROM etl_runs
		WHERE ? = '' OR variant = ?
		ORDER BY started_at DESC, id
		LIMIT ?`, variant, variant, limit)
	if err != nil {
		return nil, &Error{Op: "list runs", Table: "etl_runs", Err: err}
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, &Error{Op: "list runs", Table: "etl_runs", Err: err}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list runs", Table: "etl_runs", Err: err}
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (RunRecord, error) {
	var (
		r                 RunRecord
		started, finished string
		stats             string
	)
	if err := rows.Scan(&r.ID, &r.Variant, &r.Table, &started, &finished, &r.Status, &stats, &r.Error); err != nil {
		return RunRecord{}, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return RunRecord{}, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return RunRecord{}, fmt.Errorf("run %s finished_at: %w", r.ID, err)
	}
	r.Stats = json.RawMessage(stats)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
