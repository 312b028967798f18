package sink_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/dataset"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/sink"
)

func banks() dataset.Transformed {
	return dataset.Transformed{
		Schema: dataset.Schema{
			Version: dataset.VersionTransformed,
			Columns: []dataset.Column{
				{Name: "Name", Kind: dataset.KindText},
				{Name: "MC_USD_Billion", Kind: dataset.KindReal},
				{Name: "MC_GBP", Kind: dataset.KindReal},
			},
		},
		Rows: []dataset.Row{
			{Name: "Bank A", Values: []float64{1.00, 790.0}},
			{Name: "Bank C, Ltd.", Values: []float64{0.50, 395.40}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, sink.WriteCSV(path, banks()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,MC_USD_Billion,MC_GBP\nBank A,1.0,790.0\n\"Bank C, Ltd.\",0.5,395.4\n", string(data))
}

func TestWriteCSV_RerunIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")

	require.NoError(t, sink.WriteCSV(path, banks()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteCSV(path, banks()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteCSV_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\nwith,many\nlines,here\n"), 0o644))

	d := banks()
	d.Rows = d.Rows[:1]
	require.NoError(t, sink.WriteCSV(path, d))

	got, err := sink.ReadCSV(path)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 1)
}

func TestReadCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	want := banks()
	require.NoError(t, sink.WriteCSV(path, want))

	got, err := sink.ReadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, want.Schema, got.Schema)
	require.Len(t, got.Rows, len(want.Rows))
	for i := range want.Rows {
		assert.Equal(t, want.Rows[i].Name, got.Rows[i].Name)
		assert.InDeltaSlice(t, want.Rows[i].Values, got.Rows[i].Values, 0.01)
	}
}

func TestWriteCSV_Errors(t *testing.T) {
	bad := banks()
	bad.Rows = append(bad.Rows, dataset.Row{Name: "Bank D", Values: []float64{1}})

	err := sink.WriteCSV(filepath.Join(t.TempDir(), "bank.csv"), bad)
	var se *sink.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)

	err = sink.WriteCSV(filepath.Join(t.TempDir(), "missing", "bank.csv"), banks())
	require.True(t, errors.As(err, &se))
}

func TestReadCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "no numeric column", content: "Name\nBank A\n"},
		{name: "not numeric", content: "Name,MC_GBP\nBank A,abc\n"},
		{name: "ragged", content: "Name,MC_GBP\nBank A,1.0,2.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := sink.ReadCSV(path)
			var se *sink.Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "read", se.Op)
		})
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", sink.FormatFloat(1))
	assert.Equal(t, "395.4", sink.FormatFloat(395.40))
	assert.Equal(t, "0.06", sink.FormatFloat(0.06))
	assert.Equal(t, "26854.6", sink.FormatFloat(26854.6))
	assert.Equal(t, "100000000.0", sink.FormatFloat(1e8))
}
