// Package sink writes transformed datasets to flat files.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
)

// Error reports a failed file write or read.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WriteCSV replaces the file at path with d: a header of column names, then
// one line per row. The file is written to a temporary sibling and renamed
// into place, so readers never see a partial snapshot.
func WriteCSV(path string, d dataset.Transformed) error {
	if err := d.Check(); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := encode(tmp, d); err != nil {
		_ = tmp.Close()
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

func encode(w io.Writer, d dataset.Transformed) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Schema.Names()); err != nil {
		return err
	}
	record := make([]string, len(d.Schema.Columns))
	for _, row := range d.Rows {
		record[0] = row.Name
		for i, v := range row.Values {
			record[i+1] = FormatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat renders v in its shortest round-trip form, keeping a ".0" on
// integral values: 790 is written as "790.0".
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// ReadCSV loads a snapshot written by WriteCSV. The first column is the
// identifier; every other column is numeric.
func ReadCSV(path string) (dataset.Transformed, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Transformed{}, &Error{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	d, err := decode(f)
	if err != nil {
		return dataset.Transformed{}, &Error{Op: "read", Path: path, Err: err}
	}
	return d, nil
}

func decode(r io.Reader) (dataset.Transformed, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.Transformed{}, errors.New("missing header")
		}
		return dataset.Transformed{}, err
	}

	d := dataset.Transformed{Schema: dataset.Schema{Version: dataset.VersionTransformed}}
	for i, name := range header {
		kind := dataset.KindReal
		if i == 0 {
			kind = dataset.KindText
		}
		d.Schema.Columns = append(d.Schema.Columns, dataset.Column{Name: name, Kind: kind})
	}
	if err := d.Schema.Validate(); err != nil {
		return dataset.Transformed{}, err
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataset.Transformed{}, err
		}
		row := dataset.Row{Name: rec[0], Values: make([]float64, len(rec)-1)}
		for i, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				line, _ := cr.FieldPos(i + 1)
				return dataset.Transformed{}, fmt.Errorf("line %d column %q: %w", line, header[i+1], err)
			}
			row.Values[i] = v
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}
