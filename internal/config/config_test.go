package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"banks", "gdp"}, cfg.Names())
	assert.Equal(t, config.DefaultProgressLog, cfg.ProgressLog)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)

	banks, err := cfg.Variant("banks")
	require.NoError(t, err)
	assert.Equal(t, "Largest_banks", banks.TableName)
	assert.Equal(t, "silent", banks.Policy)
	assert.Len(t, banks.Queries, 3)

	gdp, err := cfg.Variant("gdp")
	require.NoError(t, err)
	assert.Equal(t, 2, gdp.TableLocator)
	assert.True(t, gdp.RequireLink)
	assert.Equal(t, "logged", gdp.Policy)
	assert.Empty(t, gdp.Currencies)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverridesPresetFields(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
driver: sqlite
fetch_timeout: 5s
variants:
  banks:
    source_url: file:///srv/archive/banks.html
    currencies: [GBP]
  offline_gdp:
    source_url: ./gdp.html
    table_locator: 2
    output_path: ./gdp.csv
    store_path: ./gdp.db
    table_name: gdp
    name_cell: 0
    value_cell: 2
    require_link: true
    policy: logged
    name_column: Country
    primary_column: GDP_USD_billions
    divisor: 1000
    queries:
      - label: all
        sql: SELECT * FROM gdp
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"banks", "gdp", "offline_gdp"}, cfg.Names())

	banks, err := cfg.Variant("banks")
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/archive/banks.html", banks.SourceURL)
	assert.Equal(t, []string{"GBP"}, banks.Currencies)
	assert.Equal(t, "Largest_banks", banks.TableName, "fields absent from the file keep the preset value")

	offline, err := cfg.Variant("offline_gdp")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM gdp", offline.Queries[0].SQL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	_, err = config.Load(writeConfig(t, "variants: [not, a, map]"))
	require.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default()
	env := map[string]string{
		config.EnvLogLevel:    "warn",
		config.EnvProgressLog: "/var/log/tabload.txt",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, "/var/log/tabload.txt", cfg.ProgressLog)
	assert.Equal(t, config.DefaultDriver, cfg.Driver)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Driver = "duckdb"

	banks := cfg.Variants["banks"]
	banks.Divisor = 0
	banks.ConversionSource = ""
	banks.Queries = append(banks.Queries, config.Banks().Queries[0])
	banks.Queries[0].SQL = "DELETE FROM Largest_banks"
	cfg.Variants["banks"] = banks

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`log_level "loud"`,
		`driver "duckdb"`,
		"variant banks: ",
		"divisor must be positive",
		"conversion_source is required",
		"not read-only",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestVariant_Unknown(t *testing.T) {
	_, err := config.Default().Variant("fx")
	require.ErrorContains(t, err, `unknown variant "fx" (have banks, gdp)`)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &config.Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
