// Package query runs verification statements against the store and prints
// their results.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrNotReadOnly is returned for a statement that does not start with SELECT
// or WITH.
var ErrNotReadOnly = errors.New("query: statement is not read-only")

// Spec is one labeled statement.
type Spec struct {
	Label string `yaml:"label" json:"label"`
	SQL   string `yaml:"sql" json:"sql"`
}

// Result holds the output of one statement.
type Result struct {
	Spec    Spec
	Columns []string
	Rows    [][]any
}

// Error reports a failed statement.
type Error struct {
	Label string
	SQL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("query %q: %v", e.Label, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes specs in order and writes a tabular report.
type Runner struct {
	db     *sql.DB
	out    io.Writer
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil out discards the report.
func NewRunner(db *sql.DB, out io.Writer, logger *slog.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, out: out, logger: logger}
}

// Run executes specs in order. It stops at the first failure and returns the
// results gathered so far together with a *Error.
func (r *Runner) Run(ctx context.Context, specs []Spec) ([]Result, error) {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res, err := r.run(ctx, spec)
		if err != nil {
			r.logger.ErrorContext(ctx, "query failed", "label", spec.Label, "error", err)
			return results, &Error{Label: spec.Label, SQL: spec.SQL, Err: err}
		}
		r.logger.InfoContext(ctx, "query executed", "label", spec.Label, "rows", len(res.Rows))
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) run(ctx context.Context, spec Spec) (Result, error) {
	if !ReadOnly(spec.SQL) {
		return Result{}, ErrNotReadOnly
	}

	rows, err := r.db.QueryContext(ctx, spec.SQL)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	res := Result{Spec: spec, Columns: cols}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	if err := Print(r.out, res); err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}
	return res, nil
}

// Print writes res as a label line, the statement, a tab-separated header, a
// dashed rule and one line per row.
func Print(w io.Writer, res Result) error {
	var b strings.Builder
	if res.Spec.Label != "" {
		fmt.Fprintf(&b, "-- %s\n", res.Spec.Label)
	}
	fmt.Fprintf(&b, "Query: %s\n", strings.TrimSpace(res.Spec.SQL))
	b.WriteString(strings.Join(res.Columns, "\t"))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", 40))
	b.WriteByte('\n')

	parts := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			if v == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString(strings.Join(parts, "\t"))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%d rows)\n\n", len(res.Rows))

	_, err := io.WriteString(w, b.String())
	return err
}

// ReadOnly reports whether stmt starts with SELECT or WITH, ignoring case,
// leading whitespace and leading comments.
func ReadOnly(stmt string) bool {
	s := stripLeadingComments(stmt)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	})
	if end >= 0 {
		s = s[:end]
	}
	switch strings.ToUpper(s) {
	case "SELECT", "WITH":
		return true
	}
	return false
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			return s
		}
	}
}
