// Package extract locates a table in an HTML document and turns its rows into
// validated records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
)

// Policy controls what happens to rows that fail validation. Both policies
// exclude the row and count it; they differ only in whether it is reported.
type Policy string

const (
	PolicySilent Policy = "silent"
	PolicyLogged Policy = "logged"
)

// DefaultSentinel marks a cell that has no data.
const DefaultSentinel = "—"

// Default column names of the validated schema.
const (
	DefaultNameColumn      = "Name"
	DefaultMagnitudeColumn = "Magnitude"
)

var footnote = regexp.MustCompile(`\[[^\]]*\]`)

// Options configures an Extractor.
type Options struct {
	// TableIndex selects the table body, counting every <tbody> in the
	// document in order from zero.
	TableIndex int
	NameCell   int
	ValueCell  int
	// MinCells is the fewest <td> cells a data row may have. Zero means
	// max(NameCell, ValueCell)+1.
	MinCells int
	// RequireLink takes the identifier from the first hyperlink in the name
	// cell and excludes rows whose name cell has none.
	RequireLink bool
	// Sentinels are substrings that mark a value cell as empty. Nil means
	// DefaultSentinel.
	Sentinels []string
	Policy    Policy

	NameColumn      string
	MagnitudeColumn string
}

// Extractor turns a located table into records.
type Extractor struct {
	opts Options
}

// New validates opts, fills in defaults and returns an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.TableIndex < 0 || opts.NameCell < 0 || opts.ValueCell < 0 {
		return nil, fmt.Errorf("%w: negative table or cell index", ErrInvalidOptions)
	}
	if opts.NameCell == opts.ValueCell {
		return nil, fmt.Errorf("%w: name and value share cell %d", ErrInvalidOptions, opts.NameCell)
	}
	need := max(opts.NameCell, opts.ValueCell) + 1
	if opts.MinCells == 0 {
		opts.MinCells = need
	}
	if opts.MinCells < need {
		return nil, fmt.Errorf("%w: min cells %d below %d", ErrInvalidOptions, opts.MinCells, need)
	}
	if opts.Sentinels == nil {
		opts.Sentinels = []string{DefaultSentinel}
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicySilent
	case PolicySilent, PolicyLogged:
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidOptions, opts.Policy)
	}
	if opts.NameColumn == "" {
		opts.NameColumn = DefaultNameColumn
	}
	if opts.MagnitudeColumn == "" {
		opts.MagnitudeColumn = DefaultMagnitudeColumn
	}
	return &Extractor{opts: opts}, nil
}

// Options returns the effective options.
func (e *Extractor) Options() Options { return e.opts }

// Schema returns the schema of the records this extractor emits.
func (e *Extractor) Schema() dataset.Schema {
	return dataset.ValidatedSchema(e.opts.NameColumn, e.opts.MagnitudeColumn)
}

// Parse reads an HTML document.
func (e *Extractor) Parse(markup io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(markup)
	if err != nil {
		return nil, &Error{Table: e.opts.TableIndex, Err: fmt.Errorf("parse markup: %w", err)}
	}
	return doc, nil
}

// Result is the outcome of a complete extraction.
type Result struct {
	Data    dataset.Validated
	Skipped []*SkipError
}

// Extract parses markup and collects every record of the located table.
// Row skips are returned in Result.Skipped; any other error is fatal.
func (e *Extractor) Extract(ctx context.Context, markup io.Reader) (*Result, error) {
	doc, err := e.Parse(markup)
	if err != nil {
		return nil, err
	}

	return collect(ctx, e.Schema(), e.Rows(doc))
}

func collect(ctx context.Context, schema dataset.Schema, rows iter.Seq2[dataset.Record, error]) (*Result, error) {
	res := &Result{Data: dataset.Validated{Schema: schema}}
	for rec, err := range rows {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				res.Skipped = append(res.Skipped, skip)
				continue
			}
			return nil, err
		}
		res.Data.Records = append(res.Data.Records, rec)
	}
	return res, nil
}

// Rows yields one record per qualifying row of the located table, in source
// order. Excluded rows are yielded as *SkipError. A missing table or a table
// without qualifying rows is yielded as a final *Error.
func (e *Extractor) Rows(doc *goquery.Document) iter.Seq2[dataset.Record, error] {
	return func(yield func(dataset.Record, error) bool) {
		table := doc.Find("tbody").Eq(e.opts.TableIndex)
		if table.Length() == 0 {
			yield(dataset.Record{}, &Error{Table: e.opts.TableIndex, Err: ErrTableNotFound})
			return
		}

		emitted := 0
		for i, tr := range table.ChildrenFiltered("tr").EachIter() {
			raw := rawRow(tr)
			if len(raw.Cells) == 0 {
				continue
			}
			rec, err := e.validate(i, raw)
			if err == nil {
				emitted++
			}
			if !yield(rec, err) {
				return
			}
		}

		if emitted == 0 {
			yield(dataset.Record{}, &Error{Table: e.opts.TableIndex, Err: ErrNoRecords})
		}
	}
}

func (e *Extractor) validate(row int, raw dataset.RawRow) (dataset.Record, error) {
	if len(raw.Cells) < e.opts.MinCells {
		return dataset.Record{}, &SkipError{Row: row, Reason: ReasonTooFewCells}
	}

	nameCell := raw.Cells[e.opts.NameCell]
	name := nameCell.Text
	if e.opts.RequireLink {
		if !nameCell.HasLink {
			return dataset.Record{}, &SkipError{Row: row, Reason: ReasonMissingLink, Value: nameCell.Text}
		}
		name = nameCell.Link
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return dataset.Record{}, &SkipError{Row: row, Reason: ReasonEmptyName}
	}

	text := strings.TrimSpace(raw.Cells[e.opts.ValueCell].Text)
	for _, s := range e.opts.Sentinels {
		if s != "" && strings.Contains(text, s) {
			return dataset.Record{}, &SkipError{Row: row, Reason: ReasonNoData, Value: text}
		}
	}

	v, err := ParseNumber(text)
	if err != nil {
		return dataset.Record{}, &SkipError{Row: row, Reason: ReasonNotNumeric, Value: text}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return dataset.Record{}, &SkipError{Row: row, Reason: ReasonOutOfRange, Value: text}
	}

	return dataset.Record{Name: name, Magnitude: v}, nil
}

// ParseNumber parses a displayed number such as "1,234.5[n 1]": grouping
// commas and bracketed footnote markers are removed first.
func ParseNumber(text string) (float64, error) {
	s := footnote.ReplaceAllString(text, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	return strconv.ParseFloat(s, 64)
}

// rawRow collects the <td> children of a row. Header cells are not data.
func rawRow(tr *goquery.Selection) dataset.RawRow {
	var row dataset.RawRow
	for _, n := range tr.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				row.Cells = append(row.Cells, cellOf(c))
			}
		}
	}
	return row
}

func cellOf(td *html.Node) dataset.Cell {
	sel := goquery.NewDocumentFromNode(td).Selection
	cell := dataset.Cell{Text: sel.Text()}
	if a := sel.Find("a").First(); a.Length() > 0 {
		cell.HasLink = true
		cell.Link = a.Text()
	}
	return cell
}
