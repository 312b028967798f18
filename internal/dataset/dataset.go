// Package dataset defines the records that flow between pipeline stages.
//
// Each stage produces its own type with its own schema version, so a value
// that reached the load stage cannot be confused with one that was only
// validated:
//
//	RawRow  --extract-->  Record (Validated)  --transform-->  Row (Transformed)
package dataset

import (
	"fmt"
	"math"
)

// Schema versions, named after the stage that produced the data.
const (
	VersionValidated   = "validated"
	VersionTransformed = "transformed"
)

// Kind is the storage type of a column.
type Kind string

const (
	KindText Kind = "text"
	KindReal Kind = "real"
)

// Column describes a single column in a dataset.
type Column struct {
	Name string
	Kind Kind
}

// Schema describes the shape of a dataset at one stage.
type Schema struct {
	Version string
	Columns []Column
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the shape shared by every stage: a leading text identifier
// followed by at least one real column, with unique non-empty names.
func (s Schema) Validate() error {
	if len(s.Columns) < 2 {
		return fmt.Errorf("schema %q: need an identifier and at least one numeric column", s.Version)
	}
	seen := make(map[string]bool, len(s.Columns))
	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema %q: column %d has no name", s.Version, i)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema %q: duplicate column %q", s.Version, c.Name)
		}
		seen[c.Name] = true
		want := KindReal
		if i == 0 {
			want = KindText
		}
		if c.Kind != want {
			return fmt.Errorf("schema %q: column %q must be %s", s.Version, c.Name, want)
		}
	}
	return nil
}

// RawRow is the text of one table row, cell by cell, before validation.
type RawRow struct {
	Cells []Cell
}

// Cell is the extracted content of one table cell.
type Cell struct {
	Text string
	// Link is the text of the first hyperlink inside the cell; HasLink
	// distinguishes an empty link from no link at all.
	Link    string
	HasLink bool
}

// Record is one validated row: an identifier and its unscaled magnitude.
type Record struct {
	Name      string
	Magnitude float64
}

// Valid reports whether the record satisfies the extraction invariants.
func (r Record) Valid() bool {
	return r.Name != "" && !math.IsNaN(r.Magnitude) && !math.IsInf(r.Magnitude, 0) && r.Magnitude >= 0
}

// Validated is the extractor's output.
type Validated struct {
	Schema  Schema
	Records []Record
}

// ValidatedSchema returns the schema of extracted records.
func ValidatedSchema(nameColumn, magnitudeColumn string) Schema {
	return Schema{
		Version: VersionValidated,
		Columns: []Column{
			{Name: nameColumn, Kind: KindText},
			{Name: magnitudeColumn, Kind: KindReal},
		},
	}
}

// Row is one transformed output row. Values line up with the schema columns
// after the identifier.
type Row struct {
	Name   string
	Values []float64
}

// Transformed is the final dataset written by the sinks.
type Transformed struct {
	Schema Schema
	Rows   []Row
}

// Check verifies that every row carries exactly one value per numeric column.
func (d Transformed) Check() error {
	if err := d.Schema.Validate(); err != nil {
		return err
	}
	want := len(d.Schema.Columns) - 1
	for i, r := range d.Rows {
		if len(r.Values) != want {
			return fmt.Errorf("row %d (%q): %d values for %d numeric columns", i, r.Name, len(r.Values), want)
		}
	}
	return nil
}

// Value returns the named numeric column of row i.
func (d Transformed) Value(i int, column string) (float64, bool) {
	idx := d.Schema.Index(column)
	if idx < 1 || i < 0 || i >= len(d.Rows) {
		return 0, false
	}
	return d.Rows[i].Values[idx-1], true
}
