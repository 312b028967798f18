package extract_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/extract"
)

func bankOptions() extract.Options {
	return extract.Options{
		TableIndex:      0,
		NameCell:        1,
		ValueCell:       2,
		Policy:          extract.PolicySilent,
		NameColumn:      "Name",
		MagnitudeColumn: "MC_USD",
	}
}

func gdpOptions() extract.Options {
	return extract.Options{
		TableIndex:      2,
		NameCell:        0,
		ValueCell:       2,
		RequireLink:     true,
		Policy:          extract.PolicyLogged,
		NameColumn:      "Country",
		MagnitudeColumn: "GDP_USD_millions",
	}
}

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// =============================================================================
// Options
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	e, err := extract.New(extract.Options{NameCell: 1, ValueCell: 2})
	require.NoError(t, err)

	opts := e.Options()
	assert.Equal(t, 3, opts.MinCells)
	assert.Equal(t, []string{extract.DefaultSentinel}, opts.Sentinels)
	assert.Equal(t, extract.PolicySilent, opts.Policy)
	assert.Equal(t, []string{"Name", "Magnitude"}, e.Schema().Names())
	assert.Equal(t, dataset.VersionValidated, e.Schema().Version)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts extract.Options
	}{
		{name: "negative table", opts: extract.Options{TableIndex: -1, ValueCell: 1}},
		{name: "same cell", opts: extract.Options{NameCell: 2, ValueCell: 2}},
		{name: "min cells too low", opts: extract.Options{NameCell: 0, ValueCell: 2, MinCells: 2}},
		{name: "unknown policy", opts: extract.Options{ValueCell: 1, Policy: "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract.New(tt.opts)
			require.ErrorIs(t, err, extract.ErrInvalidOptions)
		})
	}
}

// =============================================================================
// Extraction
// =============================================================================

func TestExtract_Banks(t *testing.T) {
	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), openFixture(t, "banks.html"))
	require.NoError(t, err)

	assert.Equal(t, []dataset.Record{
		{Name: "Bank A", Magnitude: 1000},
		{Name: "Bank C", Magnitude: 500.5},
	}, res.Data.Records)
	assert.Equal(t, []string{"Name", "MC_USD"}, res.Data.Schema.Names())

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, extract.ReasonNoData, res.Skipped[0].Reason)
	assert.Equal(t, 2, res.Skipped[0].Row)
}

func TestExtract_GDP(t *testing.T) {
	e, err := extract.New(gdpOptions())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), openFixture(t, "gdp.html"))
	require.NoError(t, err)

	assert.Equal(t, []dataset.Record{
		{Name: "United States", Magnitude: 26854599},
		{Name: "China", Magnitude: 19373586},
		{Name: "Tuvalu", Magnitude: 63},
	}, res.Data.Records)

	reasons := make([]extract.Reason, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []extract.Reason{extract.ReasonMissingLink, extract.ReasonNoData}, reasons)
}

func TestExtract_RecordsAreValid(t *testing.T) {
	for _, tc := range []struct {
		fixture string
		opts    extract.Options
	}{
		{fixture: "banks.html", opts: bankOptions()},
		{fixture: "gdp.html", opts: gdpOptions()},
	} {
		t.Run(tc.fixture, func(t *testing.T) {
			e, err := extract.New(tc.opts)
			require.NoError(t, err)
			res, err := e.Extract(context.Background(), openFixture(t, tc.fixture))
			require.NoError(t, err)
			for _, r := range res.Data.Records {
				assert.True(t, r.Valid(), "record %+v", r)
				assert.NotContains(t, r.Name, extract.DefaultSentinel)
			}
		})
	}
}

func TestExtract_SkipReasons(t *testing.T) {
	page := `<table><tbody>
<tr><td>1</td></tr>
<tr><td>2</td><td>  </td><td>10</td></tr>
<tr><td>3</td><td>Bank X</td><td>n/a</td></tr>
<tr><td>4</td><td>Bank Y</td><td>-5</td></tr>
<tr><td>5</td><td>Bank Z</td><td>7</td></tr>
</tbody></table>`

	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, res.Data.Records, 1)
	assert.Equal(t, "Bank Z", res.Data.Records[0].Name)

	var got []extract.Reason
	for _, s := range res.Skipped {
		got = append(got, s.Reason)
	}
	assert.Equal(t, []extract.Reason{
		extract.ReasonTooFewCells,
		extract.ReasonEmptyName,
		extract.ReasonNotNumeric,
		extract.ReasonOutOfRange,
	}, got)
}

func TestExtract_NormalizesNames(t *testing.T) {
	// "e" followed by a combining acute accent.
	page := "<table><tbody><tr><td>1</td><td>Socie\u0301te\u0301</td><td>3</td></tr></tbody></table>"

	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, res.Data.Records, 1)
	assert.Equal(t, "Soci\u00e9t\u00e9", res.Data.Records[0].Name)
}

func TestExtract_TableNotFound(t *testing.T) {
	opts := bankOptions()
	opts.TableIndex = 7

	e, err := extract.New(opts)
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), openFixture(t, "banks.html"))
	require.ErrorIs(t, err, extract.ErrTableNotFound)

	var xe *extract.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, 7, xe.Table)
}

func TestExtract_NoRecords(t *testing.T) {
	page := `<table><tbody>
<tr><th>Rank</th><th>Bank</th><th>Cap</th></tr>
<tr><td>1</td><td>Bank B</td><td>—</td></tr>
</tbody></table>`

	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), strings.NewReader(page))
	require.ErrorIs(t, err, extract.ErrNoRecords)
}

func TestExtract_Cancelled(t *testing.T) {
	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Extract(ctx, openFixture(t, "banks.html"))
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Rows
// =============================================================================

func TestRows_StopsWhenConsumerStops(t *testing.T) {
	e, err := extract.New(bankOptions())
	require.NoError(t, err)

	doc, err := e.Parse(openFixture(t, "banks.html"))
	require.NoError(t, err)

	var seen int
	for rec, err := range e.Rows(doc) {
		require.NoError(t, err)
		assert.Equal(t, "Bank A", rec.Name)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "1,000.00", want: 1000},
		{in: " 500.50 ", want: 500.5},
		{in: "19,373,586[n 1]", want: 19373586},
		{in: "42[1][2]", want: 42},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := extract.ParseNumber(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := extract.ParseNumber("abc")
	require.Error(t, err)
}
