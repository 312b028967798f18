// Package config holds run configuration: built-in variant presets, an
// optional YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/query"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel    = "TABLOAD_LOG_LEVEL"
	EnvProgressLog = "TABLOAD_PROGRESS_LOG"
	EnvDriver      = "TABLOAD_DRIVER"
)

// Defaults.
const (
	DefaultProgressLog  = "./etl_project_log.txt"
	DefaultDriver       = "sqlite3"
	DefaultFetchTimeout = 30 * time.Second
)

// Config is the top-level configuration.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	ProgressLog  string             `yaml:"progress_log"`
	Driver       string             `yaml:"driver"`
	FetchTimeout time.Duration      `yaml:"fetch_timeout"`
	Variants     map[string]Variant `yaml:"variants"`
}

// Variant describes one pipeline preset from source page to queries.
type Variant struct {
	SourceURL        string `yaml:"source_url"`
	TableLocator     int    `yaml:"table_locator"`
	OutputPath       string `yaml:"output_path"`
	StorePath        string `yaml:"store_path"`
	TableName        string `yaml:"table_name"`
	ConversionSource string `yaml:"conversion_source"`

	NameCell    int      `yaml:"name_cell"`
	ValueCell   int      `yaml:"value_cell"`
	MinCells    int      `yaml:"min_cells"`
	RequireLink bool     `yaml:"require_link"`
	Sentinels   []string `yaml:"sentinels"`
	// Policy is "silent" or "logged".
	Policy string `yaml:"policy"`

	NameColumn      string   `yaml:"name_column"`
	MagnitudeColumn string   `yaml:"magnitude_column"`
	PrimaryColumn   string   `yaml:"primary_column"`
	Divisor         float64  `yaml:"divisor"`
	Currencies      []string `yaml:"currencies"`
	DerivedColumn   string   `yaml:"derived_column"`

	Queries []query.Spec `yaml:"queries"`
}

// Banks is the preset for the largest banks by market capitalization.
func Banks() Variant {
	return Variant{
		SourceURL:        "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks",
		TableLocator:     0,
		OutputPath:       "./bank.csv",
		StorePath:        "bank.db",
		TableName:        "Largest_banks",
		ConversionSource: "./exchange_rate.csv",
		NameCell:         1,
		ValueCell:        2,
		Policy:           "silent",
		NameColumn:       "Name",
		MagnitudeColumn:  "MC_USD",
		PrimaryColumn:    "MC_USD_Billion",
		Divisor:          1000,
		Currencies:       []string{"GBP", "EUR", "INR"},
		DerivedColumn:    "MC_{code}",
		Queries: []query.Spec{
			{Label: "Print entire table", SQL: "SELECT * FROM Largest_banks"},
			{Label: "Average market capitalization in GBP", SQL: "SELECT AVG(MC_GBP) AS Avg_MC_GBP FROM Largest_banks"},
			{Label: "Top 5 bank names", SQL: "SELECT Name FROM Largest_banks LIMIT 5"},
		},
	}
}

// GDP is the preset for nominal GDP by country.
func GDP() Variant {
	return Variant{
		SourceURL:       "https://web.archive.org/web/20230902185326/https://en.wikipedia.org/wiki/List_of_countries_by_GDP_%28nominal%29",
		TableLocator:    2,
		OutputPath:      "./Countries_by_GDP.csv",
		StorePath:       "World_Economies.db",
		TableName:       "Countries_by_GDP",
		NameCell:        0,
		ValueCell:       2,
		RequireLink:     true,
		Sentinels:       []string{"—"},
		Policy:          "logged",
		NameColumn:      "Country",
		MagnitudeColumn: "GDP_USD_millions",
		PrimaryColumn:   "GDP_USD_billions",
		Divisor:         1000,
		Queries: []query.Spec{
			{Label: "Economies of at least 100 billion USD", SQL: "SELECT * FROM Countries_by_GDP WHERE GDP_USD_billions >= 100"},
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		ProgressLog:  DefaultProgressLog,
		Driver:       DefaultDriver,
		FetchTimeout: DefaultFetchTimeout,
		Variants: map[string]Variant{
			"banks": Banks(),
			"gdp":   GDP(),
		},
	}
}

// fileConfig defers variant decoding so a file can override single fields of
// a preset.
type fileConfig struct {
	LogLevel     *string              `yaml:"log_level"`
	ProgressLog  *string              `yaml:"progress_log"`
	Driver       *string              `yaml:"driver"`
	FetchTimeout *time.Duration       `yaml:"fetch_timeout"`
	Variants     map[string]yaml.Node `yaml:"variants"`
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.merge(data); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.ProgressLog != nil {
		c.ProgressLog = *fc.ProgressLog
	}
	if fc.Driver != nil {
		c.Driver = *fc.Driver
	}
	if fc.FetchTimeout != nil {
		c.FetchTimeout = *fc.FetchTimeout
	}
	for name, node := range fc.Variants {
		v := c.Variants[name] // zero value for a new variant
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("variant %s: %w", name, err)
		}
		c.Variants[name] = v
	}
	return nil
}

// ApplyEnv overrides settings from the environment. A nil getenv uses
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvProgressLog); v != "" {
		c.ProgressLog = v
	}
	if v := getenv(EnvDriver); v != "" {
		c.Driver = v
	}
}

// Validate checks the configuration and every variant.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel))
	}
	switch c.Driver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("driver %q: want sqlite3 or sqlite", c.Driver))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must not be negative"))
	}
	if len(c.Variants) == 0 {
		errs = append(errs, errors.New("no variants configured"))
	}
	for _, name := range c.Names() {
		if err := c.Variants[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("variant %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks a single variant.
func (v Variant) Validate() error {
	var errs []error
	required := []struct{ field, value string }{
		{"source_url", v.SourceURL},
		{"output_path", v.OutputPath},
		{"store_path", v.StorePath},
		{"table_name", v.TableName},
		{"name_column", v.NameColumn},
		{"primary_column", v.PrimaryColumn},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.field))
		}
	}
	if v.TableLocator < 0 {
		errs = append(errs, errors.New("table_locator must not be negative"))
	}
	if v.NameCell == v.ValueCell {
		errs = append(errs, errors.New("name_cell and value_cell must differ"))
	}
	if v.Divisor <= 0 {
		errs = append(errs, errors.New("divisor must be positive"))
	}
	switch v.Policy {
	case "", "silent", "logged":
	default:
		errs = append(errs, fmt.Errorf("policy %q: want silent or logged", v.Policy))
	}
	if len(v.Currencies) > 0 && v.ConversionSource == "" {
		errs = append(errs, errors.New("conversion_source is required when currencies are set"))
	}
	for i, q := range v.Queries {
		if !query.ReadOnly(q.SQL) {
			errs = append(errs, fmt.Errorf("query %d (%s): %w", i, q.Label, query.ErrNotReadOnly))
		}
	}
	return errors.Join(errs...)
}

// Variant returns the named variant.
func (c *Config) Variant(name string) (Variant, error) {
	v, ok := c.Variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (have %s)", name, strings.Join(c.Names(), ", "))
	}
	return v, nil
}

// Names returns the configured variant names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
