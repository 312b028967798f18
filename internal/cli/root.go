// Package cli implements the tabload command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/config"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/progress"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries the flags shared by every command.
type app struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tabload",
		Short:         "Load tabular web data into CSV and SQLite",
		Long:          "tabload extracts a table from an archived web page, converts its figures, writes a CSV snapshot and a SQLite table, then runs verification queries.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (built-in presets when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config and "+config.EnvLogLevel+")")

	root.AddCommand(
		newRunCmd(a),
		newScheduleCmd(a),
		newVariantsCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// loadConfig applies precedence: flag > env > file > built-in default.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(nil)
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// logger writes to stderr and appends to the progress log. The returned
// function closes the progress log.
func (a *app) logger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	console := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: progress.ReplaceLevel,
	})
	if cfg.ProgressLog == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := progress.Open(cfg.ProgressLog)
	if err != nil {
		return nil, nil, err
	}
	file := progress.NewHandler(f, &progress.Options{Level: cfg.SlogLevel()})
	return slog.New(progress.Fanout{file, console}), f.Close, nil
}

// selectVariants returns the requested variant names, or every configured
// variant when none are named.
func selectVariants(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return cfg.Names(), nil
	}
	var errs []error
	for _, name := range args {
		if _, err := cfg.Variant(name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return args, nil
}
