package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	etl "github.com/Parnalkhole/ExtractTransformLoadGDP"
	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [variant...]",
		Short: "Show recorded runs, newest first",
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

			ctx := cmd.Context()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VARIANT\tRUN\tSTARTED\tDURATION\tSTATUS\tLOADED\tERRORS\tERROR")
			for _, name := range names {
				v := cfg.Variants[name]
				st, err := store.Open(ctx, store.Options{Path: v.StorePath, Driver: cfg.Driver, Logger: logger})
				if err != nil {
					return err
				}
				if err := st.Migrate(ctx); err != nil {
					_ = st.Close()
					return err
				}
				runs, err := st.Runs(ctx, name, limit)
				_ = st.Close()
				if err != nil {
					return err
				}
				for _, r := range runs {
					stats, err := etl.ParseStats(r.Stats)
					if err != nil {
						return fmt.Errorf("run %s: %w", r.ID, err)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						r.Variant, r.ID, r.StartedAt.Format(time.DateTime), r.Duration().Round(time.Millisecond),
						r.Status, stats.Loaded(), stats.Errors(), r.Error)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "runs per variant, 0 for all")
	return cmd
}
