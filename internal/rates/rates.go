// Package rates loads the currency conversion table.
package rates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Header names of the conversion file.
const (
	CurrencyHeader = "Currency"
	RateHeader     = "Rate"
)

// ErrMissingColumn is returned when the conversion file lacks a required header.
var ErrMissingColumn = errors.New("rates: missing column")

// Error reports a conversion source that could not be read. It is fatal.
type Error struct {
	Source string
	Line   int
	Err    error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("conversion source %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("conversion source %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MissingRateError reports a currency code absent from the table. Callers
// treat it as a warning and omit the derived column.
type MissingRateError struct {
	Code string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no conversion rate for %s", e.Code)
}

// Table maps currency codes to rates. It is immutable once loaded.
type Table struct {
	rates map[string]float64
	codes []string
}

// New builds a Table from a map. Codes are kept in sorted order.
func New(rates map[string]float64) Table {
	t := Table{rates: make(map[string]float64, len(rates))}
	for code, r := range rates {
		code = normalize(code)
		t.rates[code] = r
		t.codes = append(t.codes, code)
	}
	slices.Sort(t.codes)
	return t
}

// Rate returns the rate for code, or a *MissingRateError.
func (t Table) Rate(code string) (float64, error) {
	r, ok := t.rates[normalize(code)]
	if !ok {
		return 0, &MissingRateError{Code: code}
	}
	return r, nil
}

// Codes returns the currency codes: in file order for a table from Read or
// Load, sorted for a table from New.
func (t Table) Codes() []string { return append([]string(nil), t.codes...) }

// Len returns the number of currencies in the table.
func (t Table) Len() int { return len(t.rates) }

// Load reads a conversion file from path.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, &Error{Source: path, Err: err}
	}
	defer f.Close()
	return Read(path, f)
}

// Read parses conversion CSV from r. The first occurrence of a code wins.
func Read(source string, r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return Table{}, &Error{Source: source, Err: err}
	}
	codeCol, rateCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case CurrencyHeader:
			codeCol = i
		case RateHeader:
			rateCol = i
		}
	}
	if codeCol < 0 || rateCol < 0 {
		return Table{}, &Error{Source: source, Err: fmt.Errorf("%w: want %s,%s", ErrMissingColumn, CurrencyHeader, RateHeader)}
	}

	t := Table{rates: make(map[string]float64)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, &Error{Source: source, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if max(codeCol, rateCol) >= len(rec) {
			return Table{}, &Error{Source: source, Line: line, Err: errors.New("short record")}
		}

		code := normalize(rec[codeCol])
		if code == "" {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rec[rateCol]), 64)
		if err != nil {
			return Table{}, &Error{Source: source, Line: line, Err: fmt.Errorf("rate for %s: %w", code, err)}
		}
		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
			return Table{}, &Error{Source: source, Line: line, Err: fmt.Errorf("rate for %s out of range: %v", code, rate)}
		}
		if _, dup := t.rates[code]; dup {
			continue
		}
		t.rates[code] = rate
		t.codes = append(t.codes, code)
	}
	return t, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
