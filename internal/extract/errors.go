package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned when the document has fewer tables than
	// the configured table index.
	ErrTableNotFound = errors.New("extract: table not found")

	// ErrNoRecords is returned when the located table yields no qualifying
	// rows. A changed page layout otherwise empties the destination silently.
	ErrNoRecords = errors.New("extract: no qualifying rows")

	// ErrInvalidOptions is returned by New for an unusable configuration.
	ErrInvalidOptions = errors.New("extract: invalid options")
)

// Error reports a failure that aborts extraction: unparseable markup, a
// missing table or a table without a single usable row.
type Error struct {
	Table int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract table %d: %v", e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason classifies why a row was excluded.
type Reason string

const (
	ReasonTooFewCells Reason = "too_few_cells"
	ReasonMissingLink Reason = "missing_link"
	ReasonEmptyName   Reason = "empty_name"
	ReasonNoData      Reason = "no_data"
	ReasonNotNumeric  Reason = "not_numeric"
	ReasonOutOfRange  Reason = "out_of_range"
)

// SkipError reports a row that failed validation. It never aborts a run.
type SkipError struct {
	Row    int
	Reason Reason
	Value  string
}

func (e *SkipError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d skipped: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d skipped: %s (%q)", e.Row, e.Reason, e.Value)
}
