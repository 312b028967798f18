package store

import (
	"context"
	"fmt"
	"strings"

	etl "github.com/Parnalkhole/ExtractTransformLoadGDP"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
)

// maxParams is SQLite's bound-parameter limit since 3.32.
const maxParams = 32766

// Replace drops table if it exists, recreates it from d's schema and inserts
// every row. It returns the number of rows inserted.
//
// The statements run without an enclosing transaction: a failure part way
// leaves the table as far as it got, and the next run replaces it again.
func (s *Store) Replace(ctx context.Context, table string, d dataset.Transformed) (int64, error) {
	if table == "" {
		return 0, &Error{Op: "replace", Err: fmt.Errorf("empty table name")}
	}
	if err := d.Check(); err != nil {
		return 0, &Error{Op: "replace", Table: table, Err: err}
	}

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(table)); err != nil {
		return 0, &Error{Op: "drop", Table: table, Err: err}
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(table, d.Schema)); err != nil {
		return 0, &Error{Op: "create", Table: table, Err: err}
	}

	width := len(d.Schema.Columns)
	batcher := etl.WeightedBatcher(func(dataset.Row) int { return width }, maxParams)

	var inserted int64
	for _, batch := range batcher.Batch(d.Rows) {
		query, args := insertSQL(table, d.Schema, batch)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, &Error{Op: "insert", Table: table, Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, &Error{Op: "insert", Table: table, Err: err}
		}
		inserted += n
	}

	s.logger.DebugContext(ctx, "table replaced", "table", table, "rows", inserted)
	return inserted, nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n); err != nil {
		return 0, &Error{Op: "count", Table: table, Err: err}
	}
	return n, nil
}

// QuoteIdent double-quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(k dataset.Kind) string {
	if k == dataset.KindText {
		return "TEXT"
	}
	return "REAL"
}

func createTableSQL(table string, schema dataset.Schema) string {
	defs := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		defs[i] = QuoteIdent(c.Name) + " " + sqlType(c.Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
}

func insertSQL(table string, schema dataset.Schema, rows []dataset.Row) (string, []any) {
	cols := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = QuoteIdent(c.Name)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", QuoteIdent(table), strings.Join(cols, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, r.Name)
		for _, v := range r.Values {
			args = append(args, v)
		}
	}
	return b.String(), args
}
