// Package transform rescales extracted magnitudes and derives currency
// columns from them.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/rates"
)

// DefaultDerivedColumn names a derived column; {code} is replaced by the
// currency code.
const DefaultDerivedColumn = "MC_{code}"

// Options configures a Transformer.
type Options struct {
	NameColumn    string
	PrimaryColumn string
	// Divisor rescales the magnitude into the primary column. Must be > 0.
	Divisor       float64
	Currencies    []string
	DerivedColumn string
}

type derived struct {
	code   string
	column string
	rate   float64
}

// Transformer maps validated records to output rows. It is safe for
// concurrent use once built.
type Transformer struct {
	opts    Options
	derived []derived
	omitted []string
	schema  dataset.Schema
}

// New resolves every currency against table. A currency without a rate is
// logged at warn level and its column is left out of the schema.
func New(opts Options, table rates.Table, logger *slog.Logger) (*Transformer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Divisor <= 0 || math.IsNaN(opts.Divisor) || math.IsInf(opts.Divisor, 0) {
		return nil, fmt.Errorf("transform: divisor must be positive, got %v", opts.Divisor)
	}
	if opts.DerivedColumn == "" {
		opts.DerivedColumn = DefaultDerivedColumn
	}

	t := &Transformer{opts: opts}
	columns := []dataset.Column{
		{Name: opts.NameColumn, Kind: dataset.KindText},
		{Name: opts.PrimaryColumn, Kind: dataset.KindReal},
	}

	for _, code := range opts.Currencies {
		rate, err := table.Rate(code)
		if err != nil {
			var missing *rates.MissingRateError
			if !errors.As(err, &missing) {
				return nil, err
			}
			logger.Warn("conversion rate missing, column omitted", "currency", code)
			t.omitted = append(t.omitted, code)
			continue
		}
		column := strings.ReplaceAll(opts.DerivedColumn, "{code}", code)
		t.derived = append(t.derived, derived{code: code, column: column, rate: rate})
		columns = append(columns, dataset.Column{Name: column, Kind: dataset.KindReal})
	}

	t.schema = dataset.Schema{Version: dataset.VersionTransformed, Columns: columns}
	if err := t.schema.Validate(); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return t, nil
}

// Schema returns the output schema.
func (t *Transformer) Schema() dataset.Schema { return t.schema }

// Omitted returns the currencies left out for lack of a rate.
func (t *Transformer) Omitted() []string { return append([]string(nil), t.omitted...) }

// Transform computes one output row. Derived values use the unrescaled
// magnitude; every value is rounded exactly once.
func (t *Transformer) Transform(_ context.Context, rec dataset.Record) (dataset.Row, error) {
	if !rec.Valid() {
		return dataset.Row{}, fmt.Errorf("transform: invalid record %q (%v)", rec.Name, rec.Magnitude)
	}
	values := make([]float64, 0, 1+len(t.derived))
	primary := Round2(rec.Magnitude / t.opts.Divisor)
	if math.IsInf(primary, 0) {
		return dataset.Row{}, fmt.Errorf("transform: %s value of %q overflows", t.opts.PrimaryColumn, rec.Name)
	}
	values = append(values, primary)
	for _, d := range t.derived {
		v := Round2(rec.Magnitude * d.rate)
		if math.IsInf(v, 0) {
			return dataset.Row{}, fmt.Errorf("transform: %s value of %q overflows", d.code, rec.Name)
		}
		values = append(values, v)
	}
	return dataset.Row{Name: rec.Name, Values: values}, nil
}

// Apply transforms a whole validated dataset into a new one.
func (t *Transformer) Apply(ctx context.Context, in dataset.Validated) (dataset.Transformed, error) {
	if in.Schema.Version != dataset.VersionValidated {
		return dataset.Transformed{}, fmt.Errorf("transform: input schema version %q, want %q", in.Schema.Version, dataset.VersionValidated)
	}
	out := dataset.Transformed{
		Schema: t.schema,
		Rows:   make([]dataset.Row, 0, len(in.Records)),
	}
	for _, rec := range in.Records {
		if err := ctx.Err(); err != nil {
			return dataset.Transformed{}, err
		}
		row, err := t.Transform(ctx, rec)
		if err != nil {
			return dataset.Transformed{}, err
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Round2 rounds to two decimal places, ties to even. Values of magnitude
// 2^52 or more have no fractional part and are returned unchanged.
func Round2(x float64) float64 {
	if math.Abs(x) >= 1<<52 || math.IsNaN(x) {
		return x
	}
	return math.RoundToEven(x*100) / 100
}
