package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/config"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/job"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run [variant...]",
		Short: "Run variants once (all configured variants when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			names, err := selectVariants(cfg, args)
			if err != nil {
				return err
			}
			logger, closeLog, err := a.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			return runVariants(cmd.Context(), cfg, names, logger, cmd.OutOrStdout())
		},
	}
}

// runVariants runs each variant in turn. A failed variant does not stop the
// others; all failures are returned together.
func runVariants(ctx context.Context, cfg *config.Config, names []string, logger *slog.Logger, out io.Writer) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := cfg.Variant(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rep, err := job.NewRunner(name, v, job.Options{
			Driver:       cfg.Driver,
			FetchTimeout: cfg.FetchTimeout,
			Logger:       logger,
			Out:          out,
		}).Run(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		printReport(out, rep)
	}
	return errors.Join(errs...)
}

func printReport(w io.Writer, rep *job.Report) {
	fmt.Fprintf(w, "%s: run %s loaded %d rows into %s and %s in %s\n",
		rep.Variant, rep.RunID, rep.Loaded, rep.Table, rep.CSVPath, rep.Duration.Round(time.Millisecond))
	if len(rep.Omitted) > 0 {
		fmt.Fprintf(w, "%s: columns omitted for currencies without a rate: %v\n", rep.Variant, rep.Omitted)
	}
}
